// Package notification sends healing lifecycle updates to the
// channels named in SelfHealingPolicy.spec.notifications. It sits
// outside the core detect/diagnose/remediate loop: a failed
// notification never blocks or rolls back a healing.
package notification

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/slack-go/slack"

	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/notification/sanitization"
)

// Notification is a channel-agnostic message about an incident's
// lifecycle (started, completed, failed).
type Notification struct {
	Name    string
	Subject string
	Body    string
}

// Notifier fans a Notification out to every configured channel.
// Per-channel failures are logged, not returned, so one broken
// channel never blocks the others.
type Notifier struct {
	slack      *slack.Client
	slackChan  string
	sanitizer  *sanitization.Sanitizer
	deliverers []Deliverer
	log        logr.Logger
}

// Deliverer is any channel backend, such as delivery.Service.
type Deliverer interface {
	Deliver(ctx context.Context, n *Notification) error
}

func NewNotifier(slackToken, slackChannel string, deliverers []Deliverer, log logr.Logger) *Notifier {
	n := &Notifier{
		slackChan:  slackChannel,
		sanitizer:  sanitization.NewSanitizer(),
		deliverers: deliverers,
		log:        log,
	}
	if slackToken != "" {
		n.slack = slack.New(slackToken)
	}
	return n
}

// Notify sends n to every configured channel, sanitizing secrets from
// the body first. Delivery errors are logged and do not propagate, so
// a notification failure never affects the incident it describes.
func (n *Notifier) Notify(ctx context.Context, note *Notification) {
	sanitized := *note
	if body, err := n.sanitizer.SanitizeWithFallback(note.Body); err == nil {
		sanitized.Body = body
	} else {
		sanitized.Body = n.sanitizer.SafeFallback(note.Body)
	}

	if n.slack != nil {
		if err := n.sendSlack(ctx, &sanitized); err != nil {
			n.log.Error(err, "slack notification failed", "subject", note.Subject)
		}
	}
	for _, d := range n.deliverers {
		if err := d.Deliver(ctx, &sanitized); err != nil {
			n.log.Error(err, "notification delivery failed", "subject", note.Subject)
		}
	}
}

// Start subscribes to the Incident Orchestrator's terminal events and
// notifies on each (spec §7 "notify on incident completion/failure").
func (n *Notifier) Start(ctx context.Context, eventBus bus.Bus) {
	eventBus.Subscribe("notifier", []bus.EventType{bus.EventIncidentCompleted, bus.EventIncidentFailed}, func(e bus.Event) {
		incident, ok := e.Payload.(domain.Incident)
		if !ok {
			return
		}
		n.Notify(ctx, incidentNotification(incident))
	})
}

func incidentNotification(incident domain.Incident) *Notification {
	status := "completed"
	reason := ""
	if incident.Outcome == nil || !incident.Outcome.Success {
		status = "failed"
		if incident.Outcome != nil {
			reason = incident.Outcome.Reason
		}
	}
	body := fmt.Sprintf("target=%s namespace=%s trigger=%s status=%s", incident.Target, incident.Namespace, incident.TriggerReason, status)
	if reason != "" {
		body += fmt.Sprintf(" reason=%s", reason)
	}
	return &Notification{
		Name:    incident.ID,
		Subject: fmt.Sprintf("healing %s: %s", status, incident.Target),
		Body:    body,
	}
}

func (n *Notifier) sendSlack(ctx context.Context, note *Notification) error {
	text := fmt.Sprintf("*%s*\n%s", note.Subject, note.Body)
	_, _, err := n.slack.PostMessageContext(ctx, n.slackChan, slack.MsgOptionText(text, false))
	return err
}
