package domain

import (
	"fmt"
	"time"
)

// ResponderKind is the configuration kind. The two kinds share one shape and
// resolve independently per context, so a single message can fan out to both.
type ResponderKind string

const (
	KindPreset   ResponderKind = "preset"
	KindDisguise ResponderKind = "disguise"
)

// ResponderMode selects how an AI reply is delivered
type ResponderMode string

const (
	ModeStandard ResponderMode = "standard"
	ModeAdvanced ResponderMode = "advanced"
)

// Persona is the bot identity used for name/nickname matching
type Persona struct {
	Name       string
	Nicknames  []string
	FuzzyMatch bool // fuzzy: substring anywhere; exact: prefix of first text segment
}

// WebSearchSettings are optional provider web-search sub-parameters
type WebSearchSettings struct {
	Enabled     bool
	ContextSize string // low, medium, high
}

// CompletionSettings parameterize one chat-completion call
type CompletionSettings struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	TopP        float32
	MaxTokens   int
	WebSearch   *WebSearchSettings
}

// Ready reports whether the settings can drive a completion call
func (c *CompletionSettings) Ready() bool {
	return c.Model != "" && c.APIKey != ""
}

// MonitorSettings configure the auxiliary AI call that gates a reply
type MonitorSettings struct {
	Completion   CompletionSettings
	Keyword      string
	FuzzyMatch   bool // gate compare policy on the quantitative path
	SystemPrompt string
	UserPrompt   string
	HistoryCount int // rows injected as chat_history_for_sub_ai
}

// Ready reports whether the monitor can be invoked
func (m *MonitorSettings) Ready() bool {
	return m != nil && m.Completion.Model != "" && m.Keyword != "" && m.UserPrompt != ""
}

// TriggerSettings group the trigger enablement flags of a responder
type TriggerSettings struct {
	OnName     bool
	OnNickname bool
	OnMention  bool
	OnReply    bool

	Timed         bool
	TimedInterval time.Duration

	Quantitative bool
	Threshold    int

	Monitor *MonitorSettings
}

// HistoryLimits are the default item counts for history injection
type HistoryLimits struct {
	ChatHistory    int
	MessageHistory int
}

// ResponderConfig is the unit of automation configuration
type ResponderConfig struct {
	ID      int64
	Name    string
	Kind    ResponderKind
	Mode    ResponderMode
	Enabled bool

	Persona    Persona
	Triggers   TriggerSettings
	Completion CompletionSettings
	Content    []ContentItem
	Limits     HistoryLimits

	ReplyDelay time.Duration // pacing between successive outgoing operations
}

// Validate checks required combinations at construction time instead of
// scattering inline checks through the trigger paths.
func (c *ResponderConfig) Validate() error {
	switch c.Kind {
	case KindPreset, KindDisguise:
	default:
		return fmt.Errorf("responder %q: unknown kind %q", c.Name, c.Kind)
	}
	switch c.Mode {
	case ModeStandard, ModeAdvanced:
	default:
		return fmt.Errorf("responder %q: unknown mode %q", c.Name, c.Mode)
	}
	if !c.Completion.Ready() {
		return fmt.Errorf("responder %q: completion model and api key are required", c.Name)
	}
	if c.Triggers.Timed && c.Triggers.TimedInterval <= 0 {
		return fmt.Errorf("responder %q: timed trigger requires a positive interval", c.Name)
	}
	if c.Triggers.Quantitative && c.Triggers.Threshold <= 0 {
		return fmt.Errorf("responder %q: quantitative trigger requires a positive threshold", c.Name)
	}
	if m := c.Triggers.Monitor; m != nil && !m.Ready() {
		return fmt.Errorf("responder %q: monitor trigger requires model, keyword and user prompt", c.Name)
	}
	if (c.Triggers.Timed || c.Triggers.Quantitative) && c.Triggers.Monitor == nil {
		return fmt.Errorf("responder %q: timed/quantitative triggers require monitor settings", c.Name)
	}
	for i := range c.Content {
		if err := c.Content[i].Validate(); err != nil {
			return fmt.Errorf("responder %q: content item %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// VariableDefinition declares a custom template variable and its default
type VariableDefinition struct {
	ID           int64
	Name         string
	DefaultValue string
}
