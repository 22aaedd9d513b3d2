package llm

import (
	"fmt"
	"strings"

	contractx "github.com/atelierline/concierge/agent/contract"
	openrouterx "github.com/atelierline/concierge/pkg/openrouter"
)

// routingTemperature biases classification toward determinism.
const routingTemperature = 0.3

// Config extends the OpenRouter client config with per-role overrides. The
// router and the handlers share one client; the router gets a lower default
// temperature so routing stays close to deterministic.
type Config struct {
	openrouterx.Config

	RouterModel       string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	RouterTemperature float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// Defaults are the completion options handlers use for free-text generation.
func (c Config) Defaults() contractx.CompleteOptions {
	return contractx.CompleteOptions{
		Model:       strings.TrimSpace(c.Model),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxCompletionToken,
	}
}

// RouterOptions are the completion options used for classification.
func (c Config) RouterOptions() contractx.CompleteOptions {
	opts := c.Defaults()
	opts.Temperature = routingTemperature
	if v := strings.TrimSpace(c.RouterModel); v != "" {
		opts.Model = v
	}
	if c.RouterTemperature >= 0 {
		opts.Temperature = c.RouterTemperature
	}
	return opts
}
