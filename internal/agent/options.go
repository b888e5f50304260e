package agent

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/asynkron/ember/internal/logging"
)

// Options configures the OpenAI-compatible backend.
type Options struct {
	APIKey          string
	Model           string
	BaseURL         string
	ReasoningEffort string

	// MaxHistoryMessages bounds the conversation sent with each request;
	// older entries are dropped oldest-first. Zero means unbounded.
	MaxHistoryMessages int

	// ContextWindow is the token budget reported alongside usage updates so
	// the UI can show consumption against a total.
	ContextWindow int

	// HTTPClient can be swapped during tests.
	HTTPClient *http.Client

	Logger logging.Logger
}

// setDefaults applies reasonable defaults while keeping every knob optional
// except the API key.
func (o *Options) setDefaults() {
	if o.Model == "" {
		o.Model = "gpt-4.1"
	}
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.ContextWindow <= 0 {
		o.ContextWindow = 128000
	}
	if o.HTTPClient == nil {
		// No overall timeout: streams are long-lived and cancelled per
		// request through the context.
		o.HTTPClient = &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 60 * time.Second},
		}
	}
	if o.Logger == nil {
		o.Logger = &logging.NoOpLogger{}
	}
}

// validate performs lightweight validation of user supplied options.
func (o *Options) validate() error {
	if o.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if o.ReasoningEffort != "" {
		switch o.ReasoningEffort {
		case "low", "medium", "high":
		default:
			return errors.New("reasoning effort must be low, medium or high")
		}
	}
	return nil
}
