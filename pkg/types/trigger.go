package types

import (
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"
)

// TriggerType identifies how a workflow run is initiated.
type TriggerType string

const (
	// TriggerManual starts a run via an explicit API call.
	TriggerManual TriggerType = "manual"
	// TriggerCron starts runs on a schedule.
	TriggerCron TriggerType = "cron"
	// TriggerWebhook starts a run from an inbound HTTP callback.
	TriggerWebhook TriggerType = "webhook"
	// TriggerPlatformEvent starts a run from a platform event (telegram, discord, ...).
	TriggerPlatformEvent TriggerType = "platform-event"
	// TriggerChat starts a run from a structured chat form submission.
	TriggerChat TriggerType = "chat"
)

// cronParser accepts standard 5-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Trigger is the tagged trigger variant attached to a workflow definition.
// Exactly the config matching Type is populated.
type Trigger struct {
	Type     TriggerType           `json:"type"`
	Cron     *CronTriggerConfig    `json:"-"`
	Webhook  *WebhookTriggerConfig `json:"-"`
	Platform *PlatformEventConfig  `json:"-"`
	Chat     *ChatTriggerConfig    `json:"-"`
}

// CronTriggerConfig configures a schedule-driven trigger.
type CronTriggerConfig struct {
	// Expression is a standard 5-field cron expression.
	Expression string `json:"expression"`
	// Timezone is an optional IANA timezone name.
	Timezone string `json:"timezone,omitempty"`
}

// WebhookTriggerConfig configures an inbound HTTP trigger.
type WebhookTriggerConfig struct {
	// Path is the hook path segment the run listens on.
	Path string `json:"path"`
	// Secret, when set, must be presented by the caller.
	Secret string `json:"secret,omitempty"`
}

// PlatformEventConfig configures a vendor platform event trigger.
type PlatformEventConfig struct {
	Platform string `json:"platform"`
	Event    string `json:"event"`
}

// ChatTriggerConfig configures a chat/form trigger.
type ChatTriggerConfig struct {
	Fields []ChatField `json:"fields,omitempty"`
}

// ChatField describes one structured input field of a chat trigger.
type ChatField struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// triggerEnvelope is the persisted {type, config} form of a trigger.
type triggerEnvelope struct {
	Type   TriggerType     `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// UnmarshalJSON decodes the {type, config} envelope into the tagged variant.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var env triggerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	t.Type = env.Type

	switch env.Type {
	case TriggerManual, "":
		return nil
	case TriggerCron:
		t.Cron = &CronTriggerConfig{}
		return unmarshalConfig(env.Config, t.Cron)
	case TriggerWebhook:
		t.Webhook = &WebhookTriggerConfig{}
		return unmarshalConfig(env.Config, t.Webhook)
	case TriggerPlatformEvent:
		t.Platform = &PlatformEventConfig{}
		return unmarshalConfig(env.Config, t.Platform)
	case TriggerChat:
		t.Chat = &ChatTriggerConfig{}
		return unmarshalConfig(env.Config, t.Chat)
	default:
		// Historical platform names (telegram, discord, ...) map to platform-event.
		t.Type = TriggerPlatformEvent
		t.Platform = &PlatformEventConfig{Platform: string(env.Type)}
		return unmarshalConfig(env.Config, t.Platform)
	}
}

func unmarshalConfig(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// MarshalJSON encodes the trigger back into its {type, config} envelope.
func (t Trigger) MarshalJSON() ([]byte, error) {
	env := triggerEnvelope{Type: t.Type}
	if env.Type == "" {
		env.Type = TriggerManual
	}

	var cfg any
	switch t.Type {
	case TriggerCron:
		cfg = t.Cron
	case TriggerWebhook:
		cfg = t.Webhook
	case TriggerPlatformEvent:
		cfg = t.Platform
	case TriggerChat:
		cfg = t.Chat
	}
	if cfg != nil {
		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		env.Config = raw
	}
	return json.Marshal(env)
}

// Validate checks the trigger config against its type-specific rules.
func (t *Trigger) Validate() error {
	switch t.Type {
	case TriggerManual, "":
		return nil
	case TriggerCron:
		if t.Cron == nil || t.Cron.Expression == "" {
			return NewValidationError("", "cron trigger requires an expression")
		}
		if _, err := cronParser.Parse(t.Cron.Expression); err != nil {
			return NewValidationError("", fmt.Sprintf("invalid cron expression %q: %v", t.Cron.Expression, err))
		}
		return nil
	case TriggerWebhook:
		if t.Webhook == nil || t.Webhook.Path == "" {
			return NewValidationError("", "webhook trigger requires a path")
		}
		return nil
	case TriggerPlatformEvent:
		if t.Platform == nil || t.Platform.Platform == "" {
			return NewValidationError("", "platform-event trigger requires a platform")
		}
		return nil
	case TriggerChat:
		if t.Chat == nil {
			return NewValidationError("", "chat trigger requires a config")
		}
		for _, f := range t.Chat.Fields {
			if f.Name == "" {
				return NewValidationError("", "chat trigger fields require a name")
			}
		}
		return nil
	default:
		return NewValidationError("", fmt.Sprintf("unknown trigger type: %s", t.Type))
	}
}
