package chain

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/waxseal/waxseal/internal/domain"
)

// Publisher fans appended entries out to live consumers (websocket tails).
// *redis.PubSub satisfies this interface.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Alerter pushes operational alerts when an append fails or a CRITICAL
// entry lands. *slack.Alerter satisfies this interface.
type Alerter interface {
	AppendFailed(ctx context.Context, actor, action string, err error)
	CriticalEntry(ctx context.Context, entry *domain.AuditEntry)
}

// Recorder is the best-effort append entry point for business callers:
// a failed audit write must never abort the action that caused it. Failures
// are reported truthfully to logs and the alerter instead of being raised.
// Side channels (publish, alert) are themselves best-effort; the durable
// entry is the source of truth.
type Recorder struct {
	writer    *Writer
	publisher Publisher // nil when Redis is not configured
	channel   string
	alerter   Alerter // nil when alerting is not configured
}

// NewRecorder wraps a Writer with fan-out and alerting. publisher and
// alerter may be nil.
func NewRecorder(writer *Writer, publisher Publisher, channel string, alerter Alerter) *Recorder {
	return &Recorder{
		writer:    writer,
		publisher: publisher,
		channel:   channel,
		alerter:   alerter,
	}
}

// Record appends an entry and swallows failures after logging and alerting.
// Returns the created entry, or nil when the append failed.
func (r *Recorder) Record(ctx context.Context, req AppendRequest) *domain.AuditEntry {
	entry, err := r.writer.Append(ctx, req)
	if err != nil {
		log.Error().Err(err).
			Str("actor", req.Actor).
			Str("action", req.Action).
			Msg("audit append failed")
		if r.alerter != nil {
			r.alerter.AppendFailed(ctx, req.Actor, req.Action, err)
		}
		return nil
	}

	if r.publisher != nil {
		payload, marshalErr := json.Marshal(entry)
		if marshalErr != nil {
			log.Warn().Err(marshalErr).Str("entry_id", entry.ID.String()).Msg("audit entry publish marshal")
		} else if pubErr := r.publisher.Publish(ctx, r.channel, payload); pubErr != nil {
			log.Warn().Err(pubErr).Str("entry_id", entry.ID.String()).Msg("audit entry publish")
		}
	}

	if r.alerter != nil && entry.Severity == domain.SeverityCritical {
		r.alerter.CriticalEntry(ctx, entry)
	}

	return entry
}
