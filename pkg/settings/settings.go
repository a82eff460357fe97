// Package settings models the host configuration the static template engine
// consumes: the STATIC_TEMPLATES directive, the STATIC_ROOT output fallback,
// and the list of installed applications whose template directories backends
// may search. The engine receives a *Settings value at construction; there is
// no process-wide lookup.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App identifies an installed application: a logical name plus the filesystem
// path the application lives under. Backends configured with APP_DIRS search
// `<Path>/templates`, and templates resolved there are written back to
// `<Path>/static/<name>` unless another destination is configured.
type App struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Settings carries the host configuration the engine reads. All fields are
// optional; a zero Settings is valid for engines that receive an explicit
// configuration and absolute destinations.
type Settings struct {
	// StaticTemplates is the raw STATIC_TEMPLATES configuration mapping used
	// when an engine is constructed without an explicit configuration.
	StaticTemplates map[string]any `yaml:"STATIC_TEMPLATES"`

	// StaticRoot is the default output directory for templates that have no
	// configured destination and no owning application.
	StaticRoot string `yaml:"STATIC_ROOT"`

	// InstalledApps lists the applications visible to APP_DIRS backends, in
	// search order.
	InstalledApps []App `yaml:"INSTALLED_APPS"`
}

// Load reads a YAML settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return &s, nil
}

// App returns the installed application with the given name.
func (s *Settings) App(name string) (App, bool) {
	for _, app := range s.InstalledApps {
		if app.Name == name {
			return app, true
		}
	}
	return App{}, false
}
