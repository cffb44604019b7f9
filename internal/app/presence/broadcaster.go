package presence

import (
	"errors"
	"log/slog"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/internal/platform/metrics"
	"duochat/pkg/logging"
)

// Broadcaster announces online/offline transitions to every other live
// connection and hands the transition to the presence mirror.
//
// It is invoked by the registry while its lock is held: every send here is a
// non-blocking enqueue and nothing calls back into the registry.
type Broadcaster struct {
	log     *slog.Logger
	mirror  contracts.AsyncWorker
	metrics *metrics.Metrics
}

func NewBroadcaster(log *slog.Logger, mirror contracts.AsyncWorker, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{log: log, mirror: mirror, metrics: m}
}

func (b *Broadcaster) PresenceChanged(change domain.PresenceChange, peers []contracts.Entry) {
	kind := domain.EventUserOffline
	if change.Online {
		kind = domain.EventUserOnline
	}
	ev := domain.RelayEvent{
		Kind:      kind,
		Broadcast: true,
		Origin:    change.UserID,
		Payload: domain.PresencePayload{
			UserID:   change.UserID,
			IsOnline: change.Online,
			At:       change.At,
		},
	}
	b.metrics.Presence(change.Online)
	data, err := ev.Encode()
	if err != nil {
		b.log.Error("presence - announce - encode failed", logging.User(change.UserID.String()), logging.Err(err))
		b.metrics.Relay(string(kind), metrics.OutcomeEncode)
		return
	}
	for _, p := range peers {
		if p.UserID == change.UserID {
			continue
		}
		// Dead peers are reaped by their own connection handler; unregistering
		// here would re-enter the registry.
		switch err := p.Client.Send(data); {
		case err == nil:
			b.metrics.Relay(string(kind), metrics.OutcomeDelivered)
		case errors.Is(err, contracts.ErrClientClosed):
			b.metrics.Relay(string(kind), metrics.OutcomeDead)
		default:
			b.metrics.Relay(string(kind), metrics.OutcomeDropped)
		}
	}
	if b.mirror != nil && !b.mirror.Enqueue(change) {
		b.metrics.IncPresenceDropped()
		b.log.Warn("presence - announce - mirror queue full", logging.User(change.UserID.String()))
	}
}
