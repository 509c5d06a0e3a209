package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type (
	// Handler consumes jobs of one kind.
	Handler interface {
		Kind() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	JobHandlerFunc[T any]  func(ctx context.Context, payload T) error
	PeriodicJobHandlerFunc func(ctx context.Context) error
)

// NewJobHandler wraps a typed function as a Handler. The job kind is derived
// from the payload type name, so enqueueing a value of type T dispatches to
// the handler registered for T.
func NewJobHandler[T any](handler JobHandlerFunc[T]) Handler {
	var payload T
	return &oneTimeJobHandler[T]{
		kind:    jobKind(payload),
		handler: handler,
	}
}

// NewPeriodicJobHandler wraps a payload-less function as a Handler for
// scheduler-created jobs, dispatched by explicit kind.
func NewPeriodicJobHandler(kind string, handler PeriodicJobHandlerFunc) Handler {
	return &periodicJobHandler{
		kind:    kind,
		handler: handler,
	}
}

type oneTimeJobHandler[T any] struct {
	kind    string
	handler JobHandlerFunc[T]
}

func (h *oneTimeJobHandler[T]) Kind() string {
	return h.kind
}

func (h *oneTimeJobHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return err
	}
	return h.handler(ctx, t)
}

type periodicJobHandler struct {
	kind    string
	handler PeriodicJobHandlerFunc
}

func (h *periodicJobHandler) Kind() string {
	return h.kind
}

func (h *periodicJobHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.handler(ctx)
}

// jobKind names a payload type like "delivery.Job", pointer-stripped.
func jobKind(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}
