// Package clients initializes the external service clients from
// configuration in one place, so commands and the API server wire them the
// same way.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	c, err := clients.NewClients(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if c.Suggester != nil { ... }
package clients

import (
	"context"
	"log/slog"

	"github.com/eshaffer321/church-reconciler/internal/adapters/clients/gemini"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

// Clients holds all initialized service clients
type Clients struct {
	// Suggester is nil when no Gemini API key is configured
	Suggester *gemini.Suggester
}

// NewClients initializes the clients whose credentials are configured.
// Missing credentials disable the client rather than failing.
func NewClients(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	c := &Clients{}

	apiKey := cfg.GetAPIKey(cfg.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if apiKey == "" {
		logger.Info("No Gemini API key configured, AI suggestions disabled")
		return c, nil
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	c.Suggester = gemini.NewSuggester(client.Models, cfg.Gemini.Model, gemini.NewMemoryCache(0), logger)
	return c, nil
}
