package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/heraldhq/herald/delivery"
	"github.com/heraldhq/herald/ingest"
	"github.com/heraldhq/herald/pkg/httpserver"
	"github.com/heraldhq/herald/storage"
)

// Dependencies wires the engine services into the router.
type Dependencies struct {
	Ingest   *ingest.Service
	Delivery *delivery.Handler
	Tunnel   http.Handler
	Keys     KeyStorage

	// Health lists readiness checks (database, cache) for the probe.
	Health []func(context.Context) error
	Logger *slog.Logger
}

// NewRouter assembles the engine's HTTP surface.
func NewRouter(deps Dependencies) *chi.Mux {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(context.Background(), log, deps.Health...))

	r.Route("/v1", func(r chi.Router) {
		// The tunnel authenticates in-band with its first frame.
		r.Get("/tunnel", deps.Tunnel.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(apiKeyAuth(deps.Keys))

			r.Post("/channels/{channelID}/signals", publishSignal(deps.Ingest))
			r.Get("/channels/{channelID}/signals", listSignals(deps.Ingest))
			r.Post("/admin/dead-letters/{deadLetterID}/retry", retryDeadLetter(deps.Delivery))
		})
	})

	return r
}

type publishRequest struct {
	Title    string                `json:"title"`
	Body     string                `json:"body"`
	Urgency  storage.SignalUrgency `json:"urgency,omitempty"`
	Metadata json.RawMessage       `json:"metadata,omitempty"`
}

type signalResponse struct {
	ID             string                `json:"id"`
	ChannelID      string                `json:"channel_id"`
	Title          string                `json:"title,omitempty"`
	Body           string                `json:"body,omitempty"`
	Urgency        storage.SignalUrgency `json:"urgency,omitempty"`
	Metadata       json.RawMessage       `json:"metadata,omitempty"`
	Status         storage.SignalStatus  `json:"status"`
	DeliveryCount  int                   `json:"delivery_count"`
	DeliveredCount int                   `json:"delivered_count"`
	FailedCount    int                   `json:"failed_count"`
	CreatedAt      time.Time             `json:"created_at"`
}

func publishSignal(svc *ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx, ok := AuthContextFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
			return
		}

		var req publishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}

		res, err := svc.PublishSignal(r.Context(), chi.URLParam(r, "channelID"), authCtx, ingest.PublishInput{
			Title:    req.Title,
			Body:     req.Body,
			Urgency:  req.Urgency,
			Metadata: req.Metadata,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, signalResponse{
			ID:        res.SignalID,
			ChannelID: res.ChannelID,
			Status:    res.Status,
			CreatedAt: res.CreatedAt,
		})
	}
}

func listSignals(svc *ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx, ok := AuthContextFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			limit = n
		}
		cursor := r.URL.Query().Get("cursor")

		signals, err := svc.ListSignals(r.Context(), chi.URLParam(r, "channelID"), authCtx, limit, cursor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]signalResponse, 0, len(signals))
		for _, sig := range signals {
			out = append(out, signalResponse{
				ID:             sig.ID,
				ChannelID:      sig.ChannelID,
				Title:          sig.Title,
				Body:           sig.Body,
				Urgency:        sig.Urgency,
				Metadata:       sig.Metadata,
				Status:         sig.Status,
				DeliveryCount:  sig.DeliveryCount,
				DeliveredCount: sig.DeliveredCount,
				FailedCount:    sig.FailedCount,
				CreatedAt:      sig.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"signals": out})
	}
}

func retryDeadLetter(handler *delivery.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler.RetryFromDLQ(r.Context(), chi.URLParam(r, "deadLetterID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
