// Package backends defines the contract between the static template engine
// and the template backends it drives, along with the factory registry used
// to resolve configured BACKEND identifiers into constructors.
package backends

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bckohan/django-static-templates/pkg/settings"
)

// Origin records where a template was resolved from. App is nil when the
// template did not come from an installed application's template directory.
type Origin struct {
	// Name is the filesystem path of the resolved template source.
	Name string
	// App is the owning application, when the template was found under an
	// application root.
	App *settings.App
}

// Template is a resolved template ready to render.
type Template interface {
	// Render evaluates the template against the given context and returns the
	// produced text.
	Render(context map[string]any) (string, error)
	// Origin reports where the template was loaded from.
	Origin() Origin
}

// Backend resolves template names to Template values. Implementations signal
// an unresolvable name with *TemplateDoesNotExist; any other error is treated
// as a hard failure by the engine.
type Backend interface {
	Name() string
	GetTemplate(name string) (Template, error)
}

// Config is the resolved parameter set for a single backend instance, after
// the engine has applied defaults and validated the raw definition.
type Config struct {
	// Backend is the dotted identifier the instance was resolved from.
	Backend string
	// Name is the unique alias for this instance.
	Name string
	// Dirs lists explicit template search directories, in priority order.
	Dirs []string
	// AppDirs enables searching each installed application's templates
	// directory after Dirs.
	AppDirs bool
	// Options holds backend-specific settings.
	Options map[string]any
	// Apps lists the installed applications AppDirs lookups search.
	Apps []settings.App
}

// Roots returns the ordered search roots for this configuration: Dirs first,
// then application template directories when AppDirs is set. The app pointer
// is nil for explicit directories.
func (c Config) Roots() []Root {
	roots := make([]Root, 0, len(c.Dirs)+len(c.Apps))
	for _, dir := range c.Dirs {
		roots = append(roots, Root{Dir: dir})
	}
	if c.AppDirs {
		for i := range c.Apps {
			app := c.Apps[i]
			roots = append(roots, Root{Dir: appTemplateDir(app), App: &app})
		}
	}
	return roots
}

func appTemplateDir(app settings.App) string {
	return filepath.Join(app.Path, "templates")
}

// Root is a single template search root, optionally attributed to an
// installed application.
type Root struct {
	Dir string
	App *settings.App
}

// TemplateDoesNotExist reports that a backend could not resolve a template
// name. Tried lists the search roots consulted, in order.
type TemplateDoesNotExist struct {
	Name    string
	Backend string
	Tried   []string
}

func (e *TemplateDoesNotExist) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("backends: %s: template %q does not exist", e.Backend, e.Name)
	}
	return fmt.Sprintf(
		"backends: %s: template %q does not exist (tried: %s)",
		e.Backend, e.Name, strings.Join(e.Tried, ", "),
	)
}
