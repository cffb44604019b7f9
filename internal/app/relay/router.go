package relay

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/internal/platform/metrics"
	"duochat/pkg/logging"
)

var tracer = otel.Tracer("relay-router")

// Router forwards relay events to live connections. Events for identities
// without a connection are dropped; the persisted store is their fallback.
type Router struct {
	log      *slog.Logger
	registry contracts.Registry
	metrics  *metrics.Metrics
}

func NewRouter(log *slog.Logger, registry contracts.Registry, m *metrics.Metrics) *Router {
	return &Router{log: log, registry: registry, metrics: m}
}

// Publish never returns an error and never waits on a peer.
func (r *Router) Publish(ctx context.Context, ev domain.RelayEvent) {
	_, span := tracer.Start(ctx, "Router.Publish", trace.WithAttributes(
		attribute.String("relay.kind", string(ev.Kind)),
		attribute.String("relay.target", ev.Target.String()),
		attribute.Bool("relay.broadcast", ev.Broadcast),
	))
	defer span.End()

	kind := string(ev.Kind)
	data, err := ev.Encode()
	if err != nil {
		span.RecordError(err)
		r.metrics.Relay(kind, metrics.OutcomeEncode)
		r.log.ErrorContext(ctx, "relay - publish - encode failed", logging.Event(kind), logging.Err(err))
		return
	}
	if ev.Broadcast {
		for _, e := range r.registry.Snapshot(ev.Origin) {
			r.deliver(ctx, kind, e.UserID, e.Client, data)
		}
		return
	}
	if ev.Target == "" {
		r.log.WarnContext(ctx, "relay - publish - event without target", logging.Event(kind))
		return
	}
	c, ok := r.registry.Lookup(ev.Target)
	if !ok {
		r.metrics.Relay(kind, metrics.OutcomeOffline)
		r.log.DebugContext(ctx, "relay - publish - target offline", logging.Event(kind), logging.User(ev.Target.String()))
		return
	}
	r.deliver(ctx, kind, ev.Target, c, data)
}

func (r *Router) deliver(ctx context.Context, kind string, id domain.UserID, c contracts.Client, data []byte) {
	err := c.Send(data)
	switch {
	case err == nil:
		r.metrics.Relay(kind, metrics.OutcomeDelivered)
	case errors.Is(err, contracts.ErrClientClosed):
		r.metrics.Relay(kind, metrics.OutcomeDead)
		// Compare-and-remove: a newer connection for id is left alone.
		if r.registry.Unregister(id, c) {
			r.log.InfoContext(ctx, "relay - deliver - reaped dead connection", logging.User(id.String()), logging.Conn(c.ConnID()))
		}
	default:
		r.metrics.Relay(kind, metrics.OutcomeDropped)
		r.log.WarnContext(ctx, "relay - deliver - dropped event", logging.Event(kind), logging.User(id.String()), logging.Err(err))
	}
}
