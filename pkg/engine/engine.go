// Package engine implements the static template engine: it validates a
// STATIC_TEMPLATES configuration, instantiates the configured backends in
// precedence order, and renders named templates to files on disk with merged
// global, per-template, and call-time contexts.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bckohan/django-static-templates/pkg/backends"
	"github.com/bckohan/django-static-templates/pkg/backends/gotpl"
	"github.com/bckohan/django-static-templates/pkg/backends/pongo2"
	"github.com/bckohan/django-static-templates/pkg/settings"
)

// Option customises engine construction.
type Option func(*Engine)

// WithSettings supplies the host settings the engine reads its fallback
// configuration, static root, and installed applications from. The settings
// value is also bound to the reserved "settings" context key.
func WithSettings(s *settings.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithRegistry overrides the backend factory registry.
func WithRegistry(registry *backends.Registry) Option {
	return func(e *Engine) {
		e.registry = registry
	}
}

// WithLogger enables progress logging. Without it the engine is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// DefaultRegistry returns a registry with the built-in backends registered.
func DefaultRegistry() *backends.Registry {
	registry := backends.NewRegistry()
	registry.MustRegister(pongo2.Identifier, pongo2.New)
	registry.MustRegister(gotpl.Identifier, gotpl.New)
	return registry
}

// Engine renders configured static templates to disk. All configuration is
// validated and all backends are instantiated by New; the resulting value is
// immutable and safe for concurrent reads.
type Engine struct {
	settings  *settings.Settings
	registry  *backends.Registry
	logger    *slog.Logger
	global    map[string]any
	templates map[string]TemplateConfig
	aliases   []string
	instances map[string]backends.Backend
}

// New constructs an engine from the given configuration. When config is nil
// the STATIC_TEMPLATES mapping from the supplied settings is used; if neither
// is present construction fails. Every validation rule is applied eagerly, so
// a non-nil engine is fully resolved.
func New(config Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		templates: make(map[string]TemplateConfig),
		instances: make(map[string]backends.Backend),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.settings == nil {
		e.settings = &settings.Settings{}
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	raw := config
	if raw == nil {
		if e.settings.StaticTemplates == nil {
			return nil, fmt.Errorf(
				"%w: no STATIC_TEMPLATES configuration was provided",
				ErrImproperlyConfigured,
			)
		}
		raw = Config(e.settings.StaticTemplates)
	}

	if err := checkRootKeys(raw); err != nil {
		return nil, err
	}

	globalCtx, err := parseGlobalContext(raw)
	if err != nil {
		return nil, err
	}
	e.global = map[string]any{"settings": e.settings}
	for key, value := range globalCtx {
		e.global[key] = value
	}

	if e.templates, err = parseTemplates(raw); err != nil {
		return nil, err
	}

	defs, err := parseEngineDefs(raw)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		factory, err := e.registry.Resolve(def.Backend)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: invalid BACKEND for a static template engine: %s. Check your STATIC_TEMPLATES setting",
				ErrImproperlyConfigured, def.Backend,
			)
		}
		def.Apps = e.settings.InstalledApps
		backend, err := factory(def)
		if err != nil {
			return nil, fmt.Errorf("engine: initialize backend %q: %w", def.Name, err)
		}
		e.aliases = append(e.aliases, def.Name)
		e.instances[def.Name] = backend
	}

	return e, nil
}

// Settings returns the host settings the engine was constructed with.
func (e *Engine) Settings() *settings.Settings {
	return e.settings
}

// Aliases lists the configured backend aliases in declaration order, which is
// also lookup precedence order.
func (e *Engine) Aliases() []string {
	return append([]string(nil), e.aliases...)
}

// All returns the backend instances in precedence order.
func (e *Engine) All() []backends.Backend {
	instances := make([]backends.Backend, 0, len(e.aliases))
	for _, alias := range e.aliases {
		instances = append(instances, e.instances[alias])
	}
	return instances
}

// Backend returns the backend configured under an alias.
func (e *Engine) Backend(alias string) (backends.Backend, error) {
	backend, ok := e.instances[alias]
	if !ok {
		return nil, &InvalidBackendError{Alias: alias}
	}
	return backend, nil
}

// GlobalContext returns a copy of the resolved global context, including the
// reserved "settings" entry.
func (e *Engine) GlobalContext() map[string]any {
	ctx := make(map[string]any, len(e.global))
	for key, value := range e.global {
		ctx[key] = value
	}
	return ctx
}

// Templates returns a copy of the per-template configurations keyed by
// template name.
func (e *Engine) Templates() map[string]TemplateConfig {
	configs := make(map[string]TemplateConfig, len(e.templates))
	for name, cfg := range e.templates {
		configs[name] = cfg
	}
	return configs
}

// RenderOption customises a single RenderToDisk call without touching the
// engine's cached configuration.
type RenderOption func(*renderParams)

type renderParams struct {
	context map[string]any
	dest    string
}

// WithContext overlays call-time context values over the configured global
// and per-template contexts.
func WithContext(context map[string]any) RenderOption {
	return func(p *renderParams) {
		p.context = context
	}
}

// WithDestination overrides the configured output destination for this call.
func WithDestination(dest string) RenderOption {
	return func(p *renderParams) {
		p.dest = dest
	}
}

// RenderToDisk renders the highest-precedence template of the given name and
// writes it to its resolved destination, creating missing parent directories.
// It returns the path written to.
//
// The destination is the first defined of: the WithDestination override, the
// configured 'dest' for the template, `<app>/static/<name>` when the template
// was resolved from an installed application, and `STATIC_ROOT/<name>`.
func (e *Engine) RenderToDisk(name string, opts ...RenderOption) (string, error) {
	var params renderParams
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&params)
	}

	cfg := e.templates[name]

	// Every backend is consulted even after a hit, so misconfigured later
	// backends surface here rather than silently falling out of rotation.
	// Only the first successful resolution is kept.
	var resolved backends.Template
	var chain []error
	for _, alias := range e.aliases {
		candidate, err := e.instances[alias].GetTemplate(name)
		if err != nil {
			var miss *backends.TemplateDoesNotExist
			if errors.As(err, &miss) {
				chain = append(chain, err)
				continue
			}
			return "", fmt.Errorf("engine: backend %q: %w", alias, err)
		}
		if resolved == nil {
			resolved = candidate
		}
	}
	if resolved == nil {
		return "", &TemplateNotFoundError{Name: name, Chain: chain}
	}

	dest := params.dest
	if dest == "" {
		dest = cfg.Dest
	}
	if dest == "" {
		if app := resolved.Origin().App; app != nil {
			dest = filepath.Join(app.Path, "static", filepath.FromSlash(name))
		} else if root := e.settings.StaticRoot; root != "" {
			dest = filepath.Join(root, filepath.FromSlash(name))
		} else {
			return "", fmt.Errorf(
				"%w: template %q must either be configured with a 'dest' or STATIC_ROOT must be set, because it was not loaded from an application",
				ErrImproperlyConfigured, name,
			)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("engine: create %s: %w", filepath.Dir(dest), err)
	}

	context := make(map[string]any, len(e.global)+len(cfg.Context)+len(params.context))
	for key, value := range e.global {
		context[key] = value
	}
	for key, value := range cfg.Context {
		context[key] = value
	}
	for key, value := range params.context {
		context[key] = value
	}

	rendered, err := resolved.Render(context)
	if err != nil {
		return "", fmt.Errorf("engine: render %q: %w", name, err)
	}

	if err := os.WriteFile(dest, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("engine: write %s: %w", dest, err)
	}

	e.logger.Debug("rendered template", "template", name, "dest", dest, "origin", resolved.Origin().Name)
	return dest, nil
}
