package engine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bckohan/django-static-templates/pkg/backends"
	"github.com/bckohan/django-static-templates/pkg/backends/pongo2"
)

// Config is the raw STATIC_TEMPLATES configuration mapping. Permitted root
// keys are ENGINES (sequence of backend definitions), templates (mapping of
// template name to per-template settings), and context (mapping of global
// context variables).
type Config map[string]any

// TemplateConfig holds the validated per-template settings.
type TemplateConfig struct {
	// Name is the template name this configuration applies to.
	Name string
	// Dest is the absolute output path, empty when unset.
	Dest string
	// Context is merged over the global context at render time.
	Context map[string]any
}

// DefaultEngineConfig returns the backend definitions used when the
// configuration has no ENGINES key: a single pongo2 backend with no explicit
// search directories, APP_DIRS enabled, and no options.
func DefaultEngineConfig() []map[string]any {
	return []map[string]any{{
		"BACKEND":  pongo2.Identifier,
		"DIRS":     []string{},
		"APP_DIRS": true,
		"OPTIONS":  map[string]any{},
	}}
}

func checkRootKeys(raw Config) error {
	var unknown []string
	for key := range raw {
		switch key {
		case "ENGINES", "templates", "context":
		default:
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf(
		"%w: unrecognized STATIC_TEMPLATES configuration directives: %s",
		ErrImproperlyConfigured, strings.Join(unknown, ", "),
	)
}

func parseGlobalContext(raw Config) (map[string]any, error) {
	value, ok := raw["context"]
	if !ok || value == nil {
		return nil, nil
	}
	ctx, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf(
			"%w: STATIC_TEMPLATES 'context' directive must be a mapping, got %T",
			ErrImproperlyConfigured, value,
		)
	}
	return ctx, nil
}

func parseTemplates(raw Config) (map[string]TemplateConfig, error) {
	configs := make(map[string]TemplateConfig)
	value, ok := raw["templates"]
	if !ok || value == nil {
		return configs, nil
	}
	entries, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf(
			"%w: STATIC_TEMPLATES 'templates' directive must be a mapping, got %T",
			ErrImproperlyConfigured, value,
		)
	}
	for name, params := range entries {
		cfg, err := parseTemplateConfig(name, params)
		if err != nil {
			return nil, err
		}
		configs[name] = cfg
	}
	return configs, nil
}

func parseTemplateConfig(name string, raw any) (TemplateConfig, error) {
	cfg := TemplateConfig{Name: name}
	if raw == nil {
		return cfg, nil
	}
	params, ok := raw.(map[string]any)
	if !ok {
		return cfg, fmt.Errorf(
			"%w: template %q settings must be a mapping, got %T",
			ErrImproperlyConfigured, name, raw,
		)
	}
	for key, value := range params {
		switch key {
		case "dest":
			dest, ok := value.(string)
			if !ok {
				return cfg, fmt.Errorf(
					"%w: template %q 'dest' must be a path string, got %T",
					ErrImproperlyConfigured, name, value,
				)
			}
			if !filepath.IsAbs(dest) {
				return cfg, fmt.Errorf(
					"%w: template %q 'dest' must be absolute, got %q",
					ErrImproperlyConfigured, name, dest,
				)
			}
			cfg.Dest = dest
		case "context":
			ctx, ok := value.(map[string]any)
			if !ok {
				return cfg, fmt.Errorf(
					"%w: template %q 'context' must be a mapping, got %T",
					ErrImproperlyConfigured, name, value,
				)
			}
			cfg.Context = ctx
		default:
			return cfg, fmt.Errorf(
				"%w: template %q has unrecognized parameter %q",
				ErrImproperlyConfigured, name, key,
			)
		}
	}
	return cfg, nil
}

func parseEngineDefs(raw Config) ([]backends.Config, error) {
	value, ok := raw["ENGINES"]
	if !ok || value == nil {
		defaults := DefaultEngineConfig()
		entries := make([]any, 0, len(defaults))
		for _, def := range defaults {
			entries = append(entries, def)
		}
		return parseEngineEntries(entries)
	}

	var entries []any
	switch defs := value.(type) {
	case []any:
		entries = defs
	case []map[string]any:
		entries = make([]any, 0, len(defs))
		for _, def := range defs {
			entries = append(entries, def)
		}
	case []Config:
		entries = make([]any, 0, len(defs))
		for _, def := range defs {
			entries = append(entries, map[string]any(def))
		}
	default:
		return nil, fmt.Errorf(
			"%w: ENGINES in STATIC_TEMPLATES must be a sequence of engine configurations, got %T",
			ErrImproperlyConfigured, value,
		)
	}
	return parseEngineEntries(entries)
}

func parseEngineEntries(entries []any) ([]backends.Config, error) {
	configs := make([]backends.Config, 0, len(entries))
	for _, entry := range entries {
		cfg, err := parseEngineDef(entry)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	if duplicates := duplicateAliases(configs); len(duplicates) > 0 {
		return nil, fmt.Errorf(
			"%w: template engine aliases are not unique, duplicates: %s. Set a unique NAME for each engine in STATIC_TEMPLATES",
			ErrImproperlyConfigured, strings.Join(duplicates, ", "),
		)
	}
	return configs, nil
}

func parseEngineDef(entry any) (backends.Config, error) {
	var cfg backends.Config

	def, ok := entry.(map[string]any)
	if !ok {
		return cfg, fmt.Errorf(
			"%w: each ENGINES entry must be a mapping, got %T",
			ErrImproperlyConfigured, entry,
		)
	}

	identifier, ok := def["BACKEND"].(string)
	if !ok || identifier == "" {
		invalid := "<not defined>"
		if value, present := def["BACKEND"]; present {
			invalid = fmt.Sprintf("%v", value)
		}
		return cfg, fmt.Errorf(
			"%w: invalid BACKEND for a static template engine: %s. Check your STATIC_TEMPLATES setting",
			ErrImproperlyConfigured, invalid,
		)
	}

	segments := strings.Split(identifier, ".")
	cfg.Backend = identifier
	cfg.Name = segments[len(segments)-1]
	cfg.Options = map[string]any{}

	for key, value := range def {
		switch key {
		case "BACKEND":
		case "NAME":
			alias, ok := value.(string)
			if !ok || alias == "" {
				return cfg, fmt.Errorf(
					"%w: engine %q NAME must be a non-empty string, got %v",
					ErrImproperlyConfigured, identifier, value,
				)
			}
			cfg.Name = alias
		case "DIRS":
			dirs, err := toStringSlice(value)
			if err != nil {
				return cfg, fmt.Errorf(
					"%w: engine %q DIRS must be a sequence of paths: %v",
					ErrImproperlyConfigured, identifier, err,
				)
			}
			cfg.Dirs = dirs
		case "APP_DIRS":
			enabled, ok := value.(bool)
			if !ok {
				return cfg, fmt.Errorf(
					"%w: engine %q APP_DIRS must be a bool, got %T",
					ErrImproperlyConfigured, identifier, value,
				)
			}
			cfg.AppDirs = enabled
		case "OPTIONS":
			options, ok := value.(map[string]any)
			if !ok {
				return cfg, fmt.Errorf(
					"%w: engine %q OPTIONS must be a mapping, got %T",
					ErrImproperlyConfigured, identifier, value,
				)
			}
			cfg.Options = options
		default:
			return cfg, fmt.Errorf(
				"%w: engine %q has unrecognized parameter %q",
				ErrImproperlyConfigured, identifier, key,
			)
		}
	}
	return cfg, nil
}

// duplicateAliases returns repeated aliases in first-seen order.
func duplicateAliases(configs []backends.Config) []string {
	counts := make(map[string]int, len(configs))
	for _, cfg := range configs {
		counts[cfg.Name]++
	}
	var duplicates []string
	seen := make(map[string]bool, len(counts))
	for _, cfg := range configs {
		if counts[cfg.Name] > 1 && !seen[cfg.Name] {
			seen[cfg.Name] = true
			duplicates = append(duplicates, cfg.Name)
		}
	}
	return duplicates
}

func toStringSlice(value any) ([]string, error) {
	switch dirs := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), dirs...), nil
	case []any:
		out := make([]string, 0, len(dirs))
		for _, entry := range dirs {
			dir, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string, got %T", entry)
			}
			out = append(out, dir)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a sequence, got %T", value)
	}
}
