package api

import (
	"context"

	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/auth"
	"github.com/yourname/inkjournal/internal/config"
	"github.com/yourname/inkjournal/internal/insight"
)

type InsightGenerator interface {
	Generate(ctx context.Context, req insight.Request) (insight.Result, error)
}

// ProviderProbe checks the text-generation provider for /health/openai.
type ProviderProbe interface {
	Available() bool
	Model() string
	Ping(ctx context.Context) error
}

type App interface {
	Logger() internal.Logger
	Config() *config.Config
	Auth() auth.Provider
	Insights() InsightGenerator
	Provider() ProviderProbe
}
