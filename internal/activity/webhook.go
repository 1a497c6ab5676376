package activity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kubidu/kubidu/internal/model"
)

// Webhook template names.
const (
	TemplateGeneric = "generic"
	TemplateSlack   = "slack"
)

// Webhook delivers workspace events to the configured notification URL.
type Webhook struct {
	client   *http.Client
	url      string
	template string
}

// NewWebhook creates a Webhook activity struct. An empty url disables
// delivery.
func NewWebhook(url, template string) *Webhook {
	return &Webhook{
		client:   &http.Client{Timeout: 30 * time.Second},
		url:      url,
		template: template,
	}
}

// SendWorkspaceEvent POSTs the event using the configured template.
func (a *Webhook) SendWorkspaceEvent(ctx context.Context, event model.WorkspaceEvent) error {
	if a.url == "" {
		return nil
	}
	var body any
	switch a.template {
	case TemplateSlack:
		body = slackPayload(event)
	default:
		body = GenericWebhookPayload{Event: event.Type, Data: event}
	}
	return postJSON(ctx, a.client, a.url, body, nil)
}

// GenericWebhookPayload is the default JSON body.
type GenericWebhookPayload struct {
	Event string               `json:"event"`
	Data  model.WorkspaceEvent `json:"data"`
}

var eventEmoji = map[string]string{
	model.EventServiceCreated:     ":sparkles:",
	model.EventServiceUpdated:     ":pencil2:",
	model.EventServiceDeleted:     ":wastebasket:",
	model.EventDeploymentCreated:  ":rocket:",
	model.EventDeploymentRollback: ":rewind:",
}

// slackPayload builds a Slack Block Kit message.
func slackPayload(e model.WorkspaceEvent) map[string]any {
	emoji, ok := eventEmoji[e.Type]
	if !ok {
		emoji = ":bell:"
	}
	name := e.ServiceName
	if name == "" {
		name = e.ServiceID
	}

	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Service:* %s", name)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Project:* %s", e.ProjectID)},
	}
	if e.DeploymentID != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Deployment:* %s", e.DeploymentID)})
	}
	if e.ActorID != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*By:* %s", e.ActorID)})
	}

	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": fmt.Sprintf("%s *%s*", emoji, e.Type)},
		},
		{"type": "section", "fields": fields},
	}
	if e.Message != "" {
		blocks = append(blocks, map[string]any{
			"type": "context",
			"elements": []map[string]string{
				{"type": "mrkdwn", "text": e.Message},
			},
		})
	}
	return map[string]any{"text": e.Type, "blocks": blocks}
}
