// Package gotpl provides a static template backend over the standard
// library's template engines, for projects whose templates use Go template
// syntax instead of the Django syntax the pongo2 backend expects.
package gotpl

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	texttemplate "text/template"

	"github.com/bckohan/django-static-templates/pkg/backends"
)

// Identifier is the dotted BACKEND value this backend registers under.
const Identifier = "statictemplates.backends.GoTemplates"

// Backend resolves and renders Go templates from a set of search roots.
type Backend struct {
	name       string
	roots      []backends.Root
	autoescape bool
}

var _ backends.Backend = (*Backend)(nil)

// New constructs a Go template backend from a resolved configuration.
//
// Recognised OPTIONS:
//   - "autoescape": bool, default true. When true templates are parsed with
//     html/template and output is contextually escaped; when false
//     text/template is used and output is written verbatim.
func New(cfg backends.Config) (backends.Backend, error) {
	b := &Backend{
		name:       cfg.Name,
		roots:      cfg.Roots(),
		autoescape: true,
	}
	for key, value := range cfg.Options {
		switch key {
		case "autoescape":
			enabled, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("gotpl: 'autoescape' option must be a bool, got %T", value)
			}
			b.autoescape = enabled
		default:
			return nil, fmt.Errorf("gotpl: unknown option %q", key)
		}
	}
	return b, nil
}

// Name returns the configured alias.
func (b *Backend) Name() string {
	return b.name
}

// GetTemplate resolves a template name against the backend's search roots and
// parses it. Unresolvable names yield *backends.TemplateDoesNotExist; parse
// failures are returned as hard errors.
func (b *Backend) GetTemplate(name string) (backends.Template, error) {
	match, tried, ok := backends.LookupFile(b.roots, name)
	if !ok {
		return nil, &backends.TemplateDoesNotExist{Name: name, Backend: b.name, Tried: tried}
	}

	source, err := os.ReadFile(match.Path)
	if err != nil {
		return nil, fmt.Errorf("gotpl: read %s: %w", match.Path, err)
	}

	var exec executor
	if b.autoescape {
		exec, err = htmltemplate.New(name).Parse(string(source))
	} else {
		exec, err = texttemplate.New(name).Parse(string(source))
	}
	if err != nil {
		return nil, fmt.Errorf("gotpl: parse %s: %w", match.Path, err)
	}

	return &Template{
		executor: exec,
		origin:   backends.Origin{Name: match.Path, App: match.Root.App},
	}, nil
}

// executor is the execution surface shared by html/template and
// text/template.
type executor interface {
	Execute(w io.Writer, data any) error
}

// Template is a parsed Go template bound to its origin.
type Template struct {
	executor executor
	origin   backends.Origin
}

var _ backends.Template = (*Template)(nil)

// Render evaluates the template against the given context.
func (t *Template) Render(context map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.executor.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("gotpl: execute %s: %w", t.origin.Name, err)
	}
	return buf.String(), nil
}

// Origin reports where the template was loaded from.
func (t *Template) Origin() backends.Origin {
	return t.origin
}
