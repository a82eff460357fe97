// Package statictemplates renders configured templates to static files on
// disk. A STATIC_TEMPLATES configuration declares ordered template backends,
// a global context, and per-template destinations and context overlays; the
// engine resolves each template through the backends in declared order,
// merges contexts, and writes the rendered output, creating parent
// directories as needed.
package statictemplates

import (
	"log/slog"

	"github.com/bckohan/django-static-templates/pkg/backends"
	"github.com/bckohan/django-static-templates/pkg/engine"
	"github.com/bckohan/django-static-templates/pkg/settings"
)

// Config is the raw STATIC_TEMPLATES configuration mapping.
type Config = engine.Config

// TemplateConfig holds validated per-template settings.
type TemplateConfig = engine.TemplateConfig

// Engine is the static template rendering engine.
type Engine = engine.Engine

// Option customises engine construction.
type Option = engine.Option

// RenderOption customises a single render call.
type RenderOption = engine.RenderOption

// Settings carries the host configuration the engine reads.
type Settings = settings.Settings

// App identifies an installed application.
type App = settings.App

// ErrImproperlyConfigured is wrapped by every configuration error.
var ErrImproperlyConfigured = engine.ErrImproperlyConfigured

// New constructs an engine from the given configuration, falling back to the
// settings' STATIC_TEMPLATES mapping when config is nil.
func New(config Config, opts ...Option) (*Engine, error) {
	return engine.New(config, opts...)
}

// WithSettings supplies the host settings collaborator.
func WithSettings(s *Settings) Option {
	return engine.WithSettings(s)
}

// WithRegistry overrides the backend factory registry.
func WithRegistry(registry *backends.Registry) Option {
	return engine.WithRegistry(registry)
}

// WithLogger enables engine progress logging.
func WithLogger(logger *slog.Logger) Option {
	return engine.WithLogger(logger)
}

// WithContext overlays call-time context values for one render.
func WithContext(context map[string]any) RenderOption {
	return engine.WithContext(context)
}

// WithDestination overrides the output destination for one render.
func WithDestination(dest string) RenderOption {
	return engine.WithDestination(dest)
}

// RenderToDisk constructs a throwaway engine from config and renders a single
// template. Callers rendering more than one template should construct an
// Engine once and reuse it.
func RenderToDisk(config Config, name string, opts ...RenderOption) (string, error) {
	eng, err := engine.New(config)
	if err != nil {
		return "", err
	}
	return eng.RenderToDisk(name, opts...)
}
