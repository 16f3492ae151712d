// Package slack pushes audit alerts to a Slack channel: failed appends and
// CRITICAL entries. Absence of an audit record is an operational signal of
// its own, so append failures page the channel even though the triggering
// business action carried on.
package slack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by Alerter.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Alerter posts audit alerts to one channel.
type Alerter struct {
	api     SlackAPI
	channel string
}

// Compile-time interface check.
var _ chain.Alerter = (*Alerter)(nil) //nolint:gochecknoglobals // compile-time check

// NewAlerter creates an Alerter posting to channelID.
func NewAlerter(api SlackAPI, channelID string) *Alerter {
	return &Alerter{api: api, channel: channelID}
}

// AppendFailed reports a failed audit append. Alert delivery is itself
// best-effort: failures are logged, never propagated.
func (a *Alerter) AppendFailed(_ context.Context, actor, action string, err error) {
	text := fmt.Sprintf(":rotating_light: audit append failed: actor `%s`, action `%s`: %v", actor, action, err)
	a.post(text)
}

// CriticalEntry reports a CRITICAL entry that was recorded successfully.
func (a *Alerter) CriticalEntry(_ context.Context, entry *domain.AuditEntry) {
	text := fmt.Sprintf(":warning: CRITICAL audit entry `%s`: actor `%s`, action `%s`, resource `%s`",
		entry.ID, entry.Actor, entry.Action, entry.ResourceID)
	a.post(text)
}

func (a *Alerter) post(text string) {
	_, _, err := a.api.PostMessage(a.channel, slacklib.MsgOptionText(text, false))
	if err != nil {
		log.Warn().Err(err).Msg("slack alert post failed")
	}
}
