package conf

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// RespondersFile is the YAML seed file shape: responder definitions with
// their chat bindings, plus custom-variable definitions.
type RespondersFile struct {
	Responders []ResponderSpec `yaml:"responders"`
	Variables  []VariableSpec  `yaml:"variables"`
}

// ResponderSpec is one responder configuration in the seed file
type ResponderSpec struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Mode    string `yaml:"mode"`
	Enabled bool   `yaml:"enabled"`
	Global  bool   `yaml:"global"`

	Persona    PersonaSpec    `yaml:"persona"`
	Triggers   TriggerSpec    `yaml:"triggers"`
	Completion CompletionSpec `yaml:"completion"`
	Content    []ContentSpec  `yaml:"content"`
	Limits     LimitsSpec     `yaml:"limits"`
	ReplyDelay string         `yaml:"reply_delay"`

	Bindings []BindingSpec `yaml:"bindings"`
}

// PersonaSpec mirrors domain.Persona
type PersonaSpec struct {
	Name       string   `yaml:"name"`
	Nicknames  []string `yaml:"nicknames"`
	FuzzyMatch bool     `yaml:"fuzzy_match"`
}

// TriggerSpec mirrors domain.TriggerSettings
type TriggerSpec struct {
	OnName     bool `yaml:"on_name"`
	OnNickname bool `yaml:"on_nickname"`
	OnMention  bool `yaml:"on_mention"`
	OnReply    bool `yaml:"on_reply"`

	Timed         bool   `yaml:"timed"`
	TimedInterval string `yaml:"timed_interval"`

	Quantitative bool `yaml:"quantitative"`
	Threshold    int  `yaml:"threshold"`

	Monitor *MonitorSpec `yaml:"monitor"`
}

// MonitorSpec mirrors domain.MonitorSettings
type MonitorSpec struct {
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Keyword      string `yaml:"keyword"`
	FuzzyMatch   bool   `yaml:"fuzzy_match"`
	SystemPrompt string `yaml:"system_prompt"`
	UserPrompt   string `yaml:"user_prompt"`
	HistoryCount int    `yaml:"history_count"`
}

// CompletionSpec mirrors domain.CompletionSettings
type CompletionSpec struct {
	Model       string         `yaml:"model"`
	APIKey      string         `yaml:"api_key"`
	BaseURL     string         `yaml:"base_url"`
	Temperature float32        `yaml:"temperature"`
	TopP        float32        `yaml:"top_p"`
	MaxTokens   int            `yaml:"max_tokens"`
	WebSearch   *WebSearchSpec `yaml:"web_search"`
}

// WebSearchSpec mirrors domain.WebSearchSettings
type WebSearchSpec struct {
	Enabled     bool   `yaml:"enabled"`
	ContextSize string `yaml:"context_size"`
}

// ContentSpec is one template content item
type ContentSpec struct {
	Type     string `yaml:"type"` // message or placeholder
	Role     string `yaml:"role"`
	Text     string `yaml:"text"`
	Name     string `yaml:"name"`  // placeholder name
	Count    int    `yaml:"count"` // placeholder history count
	Disabled bool   `yaml:"disabled"`
}

// LimitsSpec mirrors domain.HistoryLimits
type LimitsSpec struct {
	ChatHistory    int `yaml:"chat_history"`
	MessageHistory int `yaml:"message_history"`
}

// BindingSpec binds a responder to one chat context
type BindingSpec struct {
	ChatType string `yaml:"chat_type"`
	ChatID   string `yaml:"chat_id"`
}

// VariableSpec declares one custom variable
type VariableSpec struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
}

// LoadResponders reads and parses the seed file. A missing path yields an
// empty file rather than an error.
func LoadResponders(path string) (*RespondersFile, error) {
	if path == "" {
		return &RespondersFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[Config] no responder seed at %s", path)
			return &RespondersFile{}, nil
		}
		return nil, fmt.Errorf("failed to read responders file: %w", err)
	}

	var file RespondersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse responders file: %w", err)
	}
	log.Printf("[Config] loaded %d responders, %d variables from %s", len(file.Responders), len(file.Variables), path)
	return &file, nil
}

// ToDomain converts the parsed YAML entry into a validated configuration
func (r *ResponderSpec) ToDomain() (*domain.ResponderConfig, error) {
	cfg := &domain.ResponderConfig{
		Name:    r.Name,
		Kind:    domain.ResponderKind(r.Kind),
		Mode:    domain.ResponderMode(r.Mode),
		Enabled: r.Enabled,
		Persona: domain.Persona{
			Name:       r.Persona.Name,
			Nicknames:  r.Persona.Nicknames,
			FuzzyMatch: r.Persona.FuzzyMatch,
		},
		Triggers: domain.TriggerSettings{
			OnName:       r.Triggers.OnName,
			OnNickname:   r.Triggers.OnNickname,
			OnMention:    r.Triggers.OnMention,
			OnReply:      r.Triggers.OnReply,
			Timed:        r.Triggers.Timed,
			Quantitative: r.Triggers.Quantitative,
			Threshold:    r.Triggers.Threshold,
		},
		Completion: domain.CompletionSettings{
			Model:       r.Completion.Model,
			APIKey:      r.Completion.APIKey,
			BaseURL:     r.Completion.BaseURL,
			Temperature: r.Completion.Temperature,
			TopP:        r.Completion.TopP,
			MaxTokens:   r.Completion.MaxTokens,
		},
		Limits: domain.HistoryLimits{
			ChatHistory:    r.Limits.ChatHistory,
			MessageHistory: r.Limits.MessageHistory,
		},
	}

	if ws := r.Completion.WebSearch; ws != nil {
		cfg.Completion.WebSearch = &domain.WebSearchSettings{
			Enabled:     ws.Enabled,
			ContextSize: ws.ContextSize,
		}
	}

	if r.Triggers.TimedInterval != "" {
		interval, err := time.ParseDuration(r.Triggers.TimedInterval)
		if err != nil {
			return nil, fmt.Errorf("responder %q: bad timed_interval: %w", r.Name, err)
		}
		cfg.Triggers.TimedInterval = interval
	}

	if m := r.Triggers.Monitor; m != nil {
		cfg.Triggers.Monitor = &domain.MonitorSettings{
			Completion: domain.CompletionSettings{
				Model:   m.Model,
				APIKey:  m.APIKey,
				BaseURL: m.BaseURL,
			},
			Keyword:      m.Keyword,
			FuzzyMatch:   m.FuzzyMatch,
			SystemPrompt: m.SystemPrompt,
			UserPrompt:   m.UserPrompt,
			HistoryCount: m.HistoryCount,
		}
	}

	if r.ReplyDelay != "" {
		delay, err := time.ParseDuration(r.ReplyDelay)
		if err != nil {
			return nil, fmt.Errorf("responder %q: bad reply_delay: %w", r.Name, err)
		}
		cfg.ReplyDelay = delay
	}

	for i, item := range r.Content {
		converted, err := item.toDomain()
		if err != nil {
			return nil, fmt.Errorf("responder %q: content item %d: %w", r.Name, i, err)
		}
		cfg.Content = append(cfg.Content, converted)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ContentSpec) toDomain() (domain.ContentItem, error) {
	item := domain.ContentItem{Enabled: !c.Disabled}
	switch c.Type {
	case "message":
		item.Kind = domain.ItemMessage
		item.Role = c.Role
		item.Text = c.Text
	case "placeholder":
		item.Kind = domain.ItemPlaceholder
		item.Placeholder = domain.PlaceholderName(c.Name)
		item.ItemCount = c.Count
	default:
		return item, fmt.Errorf("unknown content type %q", c.Type)
	}
	return item, nil
}

// ContextKey converts the binding to a domain context key
func (b *BindingSpec) ContextKey() domain.ContextKey {
	return domain.ContextKey{ChatType: domain.ChatType(b.ChatType), ChatID: b.ChatID}
}
