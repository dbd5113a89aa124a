package extraction

import (
	"fmt"
	"net/http"
	"time"
)

// Mode selects how the client talks to the extraction service.
type Mode string

const (
	// ModeCombined asks one endpoint for actions and arguments together.
	ModeCombined Mode = "combined"
	// ModeTwoCall asks for action names first, then for their arguments.
	ModeTwoCall Mode = "two_call"
)

// Endpoints are the service paths, relative to BaseURL.
type Endpoints struct {
	Combined  string `json:"combined,omitempty"`
	Names     string `json:"names,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Selectors are optional jq expressions that reshape a non-standard combined
// payload before validation. Actions must yield [{action, args}], Message a string.
type Selectors struct {
	Actions string `json:"actions,omitempty"`
	Message string `json:"message,omitempty"`
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Mode      Mode
	Endpoints Endpoints
	Selectors Selectors
	APIKey    string
	Timeout   time.Duration

	// MaxResponseBody caps how much of a response is read.
	MaxResponseBody int64

	// HTTPClient overrides the transport; http.DefaultClient's transport is cloned when nil.
	HTTPClient *http.Client
}

const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultTimeout         = 30 * time.Second
	defaultMaxResponseBody = 4 * 1024 * 1024

	DefaultCombinedPath  = "/extract_actions_with_args"
	DefaultNamesPath     = "/extract_actions"
	DefaultArgumentsPath = "/extract_arguments"
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Mode:    ModeCombined,
		Endpoints: Endpoints{
			Combined:  DefaultCombinedPath,
			Names:     DefaultNamesPath,
			Arguments: DefaultArgumentsPath,
		},
		Timeout:         DefaultTimeout,
		MaxResponseBody: defaultMaxResponseBody,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.Endpoints.Combined == "" {
		c.Endpoints.Combined = d.Endpoints.Combined
	}
	if c.Endpoints.Names == "" {
		c.Endpoints.Names = d.Endpoints.Names
	}
	if c.Endpoints.Arguments == "" {
		c.Endpoints.Arguments = d.Endpoints.Arguments
	}
	if c.MaxResponseBody <= 0 {
		c.MaxResponseBody = d.MaxResponseBody
	}
	return c
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeCombined, ModeTwoCall:
		return nil
	default:
		return fmt.Errorf("unknown extraction mode %q", c.Mode)
	}
}
