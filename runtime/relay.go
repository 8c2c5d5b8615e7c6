// Package runtime wires sessions, the message log and live fan-out together.
// It orchestrates the system without containing transport concerns.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/infrastructure/storage"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultHistorySize = 10

// Settings gathers the tunables of the relay.
type Settings struct {
	HistorySize int
	BufferSize  int
	SinkTimeout time.Duration
	// Sampling period of the internal queue gauges, zero disables sampling.
	MetricInterval time.Duration
	Limits         domain.Limits
}

// Relay owns the ordering lock.
// Connect (history read + activation) and PostMessage (append + broadcast enqueue)
// both run under it, so every message reaches a session exactly once:
// either in its history or live, never both.
type Relay struct {
	mu              sync.Mutex
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        contract.IRegistry
	repository      storage.IMessageRepository
	broadcaster     *Broadcaster
	monitor         *observability.MonitoringManager
	moderator       *moderation.Moderator
	permanentSinks  []contract.EventSink
	permanentEvents chan event.DomainEvent
	settings        Settings
	started         bool
}

func NewRelay(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	repository storage.IMessageRepository, monitor *observability.MonitoringManager, settings Settings) *Relay {
	if settings.HistorySize <= 0 {
		settings.HistorySize = defaultHistorySize
	}
	if settings.BufferSize <= 0 {
		settings.BufferSize = 1
	}
	return &Relay{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		repository:      repository,
		broadcaster:     NewBroadcaster(log),
		monitor:         monitor,
		permanentEvents: make(chan event.DomainEvent, settings.BufferSize),
		settings:        settings,
	}
}

// WithModerator enables censoring before persistence.
func (r *Relay) WithModerator(moderator moderation.Moderator) *Relay {
	r.moderator = &moderator
	return r
}

// Add registers sinks notified of every persisted message, off the hot path.
// Must be called before Start.
func (r *Relay) Add(sinks ...contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permanentSinks = append(r.permanentSinks, sinks...)
}

// Connect registers a session, sends it the recent history as a single
// HistoryLoaded event and makes it eligible for live broadcasts.
func (r *Relay) Connect(ctx context.Context, author string, sink contract.EventSink) (domain.SessionID, error) {
	session := r.registry.CreateSession(author, sink)

	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.repository.GetRecent(r.settings.HistorySize)
	if err != nil {
		r.registry.Remove(session.ID)
		return "", err
	}
	if err := sink.Consume(ctx, event.HistoryLoaded{Messages: history}); err != nil {
		r.registry.Remove(session.ID)
		return "", fmt.Errorf("%w: history not delivered: %v", errors.ErrDeliveryFailure, err)
	}
	if err := r.registry.Activate(session.ID); err != nil {
		return "", err
	}

	r.log.Info("Session connected", "session", session.ID, "author", author, "history", len(history))
	return session.ID, nil
}

// Disconnect stops every further delivery to the session. Safe to call twice.
func (r *Relay) Disconnect(id domain.SessionID) {
	if r.registry.Remove(id) {
		r.log.Info("Session disconnected", "session", id)
	}
}

// PostMessage validates, persists and broadcasts a message.
// The returned error only concerns the sender: fan-out failures are never reported.
func (r *Relay) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	cmd, err := r.validate(cmd)
	if err != nil {
		r.reject(err)
		return domain.Message{}, err
	}

	r.mu.Lock()
	start := time.Now()
	msg, err := r.repository.Append(cmd)
	if err != nil {
		r.mu.Unlock()
		r.reject(err)
		r.log.Error("Message not persisted", "author", cmd.Author, "error", err)
		return domain.Message{}, err
	}
	observability.AppendDuration.Observe(time.Since(start).Seconds())
	delivered, failed := r.broadcaster.Broadcast(ctx, msg, r.registry.ActiveSessions())
	r.mu.Unlock()

	if r.monitor != nil {
		r.monitor.IncrPosted()
		r.monitor.AddDeliveries(delivered, failed)
	}
	r.log.Debug("Message posted", "id", msg.ID, "author", msg.Author, "delivered", delivered, "failed", failed)
	r.publish(event.MessagePosted{Message: msg})
	return msg, nil
}

func (r *Relay) validate(cmd domain.PostMessageCommand) (domain.PostMessageCommand, error) {
	cmd, err := cmd.Normalize()
	if err != nil {
		return cmd, err
	}
	if err := r.settings.Limits.Check(cmd); err != nil {
		return cmd, err
	}
	if r.moderator != nil {
		censored, words := r.moderator.Censor(cmd.Text)
		if len(words) > 0 {
			r.log.Warn("Message censored",
				"author", cmd.Author,
				"words", len(words),
				"lang", moderation.DetectLanguage(cmd.Text))
			cmd.Text = censored
		}
	}
	return cmd, nil
}

func (r *Relay) reject(err error) {
	if r.monitor != nil {
		r.monitor.IncrRejected(errors.Code(err))
	}
}

// publish never blocks the sender; permanent sinks are best effort.
func (r *Relay) publish(evt event.DomainEvent) {
	select {
	case r.permanentEvents <- evt:
	default:
		observability.PermanentEventsDropped.Inc()
		r.log.Warn("Permanent sink queue full, event dropped", "event", evt.Name())
	}
}

// Start runs the supervised permanent-sink pipeline until ctx is canceled or Stop is called.
// Only the first call starts anything: permanentEvents must keep a single consumer.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		r.log.Warn("Relay already started, ignoring Start")
		return
	}
	r.started = true
	sinks := append([]contract.EventSink(nil), r.permanentSinks...)
	r.supervisor.Add(workers.NewEventFanout(r.log, sinks, r.permanentEvents, r.settings.SinkTimeout))
	if r.settings.MetricInterval > 0 {
		r.supervisor.Add(workers.NewChannelCapacityWorker(r.log, []workers.NamedChannel{
			{Name: "permanent_events", Channel: r.permanentEvents},
		}, r.settings.MetricInterval))
	}
	r.mu.Unlock()

	r.log.Info("Starting relay and all supervised workers", "permanent_sinks", len(sinks))
	r.supervisor.Run(ctx)
}

// Stop initiates a graceful shutdown of the supervised workers.
func (r *Relay) Stop() {
	r.log.Info("Requesting relay shutdown")
	r.supervisor.Stop()
}
