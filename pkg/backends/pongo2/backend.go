// Package pongo2 provides the default static template backend. It renders
// Django-syntax templates through a pongo2 template set and resolves names
// against explicit directories followed by installed application template
// directories.
package pongo2

import (
	"bytes"
	"fmt"
	"strings"

	pongo2lib "github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/bckohan/django-static-templates/pkg/backends"
)

// Identifier is the dotted BACKEND value this backend registers under.
const Identifier = "statictemplates.backends.Pongo2Templates"

// Backend resolves and renders pongo2 templates from a set of search roots.
type Backend struct {
	name   string
	roots  []backends.Root
	set    *pongo2lib.TemplateSet
	policy *bluemonday.Policy
	ext    string
}

var _ backends.Backend = (*Backend)(nil)

// New constructs a pongo2 backend from a resolved configuration.
//
// Recognised OPTIONS:
//   - "globals": mapping merged into the template set globals, available to
//     every template in addition to the render context.
//   - "sanitize": "strict" or "ugc"; applies the corresponding bluemonday
//     policy to rendered output.
//   - "extension": suffix appended to lookup names that do not already carry
//     it (e.g. ".html").
func New(cfg backends.Config) (backends.Backend, error) {
	b := &Backend{
		name:  cfg.Name,
		roots: cfg.Roots(),
	}

	var globals map[string]any
	for key, value := range cfg.Options {
		switch key {
		case "globals":
			m, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("pongo2: 'globals' option must be a mapping, got %T", value)
			}
			globals = m
		case "sanitize":
			policy, err := sanitizePolicy(value)
			if err != nil {
				return nil, err
			}
			b.policy = policy
		case "extension":
			ext, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("pongo2: 'extension' option must be a string, got %T", value)
			}
			ext = strings.TrimSpace(ext)
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			b.ext = ext
		default:
			return nil, fmt.Errorf("pongo2: unknown option %q", key)
		}
	}

	// The empty base dir lets the set compile templates by the paths the
	// root lookup resolves, while relative includes and extends resolve
	// against the including template's directory.
	b.set = pongo2lib.NewSet(cfg.Name, pongo2lib.MustNewLocalFileSystemLoader(""))
	if len(globals) > 0 {
		if b.set.Globals == nil {
			b.set.Globals = make(pongo2lib.Context)
		}
		b.set.Globals.Update(pongo2lib.Context(globals))
	}
	return b, nil
}

// Name returns the configured alias.
func (b *Backend) Name() string {
	return b.name
}

// GetTemplate resolves a template name against the backend's search roots and
// compiles it. Unresolvable names yield *backends.TemplateDoesNotExist;
// compile failures are returned as hard errors.
func (b *Backend) GetTemplate(name string) (backends.Template, error) {
	lookup := name
	if b.ext != "" && !strings.HasSuffix(lookup, b.ext) {
		lookup += b.ext
	}

	match, tried, ok := backends.LookupFile(b.roots, lookup)
	if !ok {
		return nil, &backends.TemplateDoesNotExist{Name: name, Backend: b.name, Tried: tried}
	}

	tmpl, err := b.set.FromFile(match.Path)
	if err != nil {
		return nil, fmt.Errorf("pongo2: parse %s: %w", match.Path, err)
	}

	return &Template{
		tmpl:   tmpl,
		policy: b.policy,
		origin: backends.Origin{Name: match.Path, App: match.Root.App},
	}, nil
}

// Template is a compiled pongo2 template bound to its origin.
type Template struct {
	tmpl   *pongo2lib.Template
	policy *bluemonday.Policy
	origin backends.Origin
}

var _ backends.Template = (*Template)(nil)

// Render evaluates the template against the given context.
func (t *Template) Render(context map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteWriter(pongo2lib.Context(context), &buf); err != nil {
		return "", fmt.Errorf("pongo2: execute %s: %w", t.origin.Name, err)
	}
	rendered := buf.String()
	if t.policy != nil {
		rendered = t.policy.Sanitize(rendered)
	}
	return rendered, nil
}

// Origin reports where the template was loaded from.
func (t *Template) Origin() backends.Origin {
	return t.origin
}

func sanitizePolicy(value any) (*bluemonday.Policy, error) {
	mode, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("pongo2: 'sanitize' option must be a string, got %T", value)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return bluemonday.StrictPolicy(), nil
	case "ugc":
		return bluemonday.UGCPolicy(), nil
	default:
		return nil, fmt.Errorf("pongo2: 'sanitize' option must be \"strict\" or \"ugc\", got %q", mode)
	}
}
