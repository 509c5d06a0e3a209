package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Domain attribute helpers keep log field names consistent across the
// ingest path, the delivery workers, and the tunnel.

// SignalID records a signal identifier under the key "signal_id".
func SignalID(id string) slog.Attr { return slog.String("signal_id", id) }

// ChannelID records a channel identifier under the key "channel_id".
func ChannelID(id string) slog.Attr { return slog.String("channel_id", id) }

// SubscriberID records a subscriber identifier under the key "subscriber_id".
func SubscriberID(id string) slog.Attr { return slog.String("subscriber_id", id) }

// PublisherID records a publisher identifier under the key "publisher_id".
func PublisherID(id string) slog.Attr { return slog.String("publisher_id", id) }

// SubscriptionID records a subscription identifier under the key "subscription_id".
func SubscriptionID(id string) slog.Attr { return slog.String("subscription_id", id) }

// DeliveryID records a delivery identifier under the key "delivery_id".
func DeliveryID(id string) slog.Attr { return slog.String("delivery_id", id) }

// WebhookID records a webhook identifier under the key "webhook_id".
func WebhookID(id string) slog.Attr { return slog.String("webhook_id", id) }

// ConnectionID records a tunnel connection identifier under the key "connection_id".
func ConnectionID(id string) slog.Attr { return slog.String("connection_id", id) }

// Attempt records a delivery attempt number under the key "attempt".
func Attempt(n int) slog.Attr { return slog.Int("attempt", n) }

// Lane records a queue lane name under the key "lane".
func Lane(name string) slog.Attr { return slog.String("lane", name) }

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}
