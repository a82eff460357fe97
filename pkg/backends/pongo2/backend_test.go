package pongo2_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bckohan/django-static-templates/pkg/backends"
	"github.com/bckohan/django-static-templates/pkg/backends/pongo2"
	"github.com/bckohan/django-static-templates/pkg/settings"
	"github.com/bckohan/django-static-templates/pkg/testsupport"
)

func newBackend(t *testing.T, cfg backends.Config) backends.Backend {
	t.Helper()

	if cfg.Name == "" {
		cfg.Name = "pongo2"
	}
	backend, err := pongo2.New(cfg)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	return backend
}

func TestGetTemplate_RendersWithContext(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{
		"greeting.txt": "{{ greeting|capfirst }}, {{ name }}!",
	})

	backend := newBackend(t, backends.Config{Dirs: []string{dir}})
	tmpl, err := backend.GetTemplate("greeting.txt")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}

	out, err := tmpl.Render(map[string]any{"greeting": "hello", "name": "world"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello, world!" {
		t.Fatalf("rendered %q", out)
	}
	if tmpl.Origin().App != nil {
		t.Fatal("explicit dir template should have no owning app")
	}
}

func TestGetTemplate_AppDirsAttribution(t *testing.T) {
	appDir := t.TempDir()
	testsupport.WriteTree(t, appDir, map[string]string{
		"templates/app/page.html": "app page",
	})

	backend := newBackend(t, backends.Config{
		AppDirs: true,
		Apps:    []settings.App{{Name: "app", Path: appDir}},
	})
	tmpl, err := backend.GetTemplate("app/page.html")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if app := tmpl.Origin().App; app == nil || app.Name != "app" {
		t.Fatalf("template should be attributed to its app, got %+v", tmpl.Origin())
	}
}

func TestGetTemplate_Miss(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	backend := newBackend(t, backends.Config{Dirs: []string{first, second}})

	_, err := backend.GetTemplate("missing.html")
	var miss *backends.TemplateDoesNotExist
	if !errors.As(err, &miss) {
		t.Fatalf("expected TemplateDoesNotExist, got %v", err)
	}
	if len(miss.Tried) != 2 {
		t.Fatalf("miss should list both roots, got %v", miss.Tried)
	}
}

func TestOptions_Globals(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{
		"version.txt": "v{{ version }}",
	})

	backend := newBackend(t, backends.Config{
		Dirs:    []string{dir},
		Options: map[string]any{"globals": map[string]any{"version": "1.2.3"}},
	})
	tmpl, err := backend.GetTemplate("version.txt")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	out, err := tmpl.Render(map[string]any{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "v1.2.3" {
		t.Fatalf("rendered %q", out)
	}
}

func TestOptions_Extension(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{
		"page.html": "page",
	})

	backend := newBackend(t, backends.Config{
		Dirs:    []string{dir},
		Options: map[string]any{"extension": "html"},
	})
	if _, err := backend.GetTemplate("page"); err != nil {
		t.Fatalf("extension should be appended on lookup: %v", err)
	}
}

func TestOptions_Sanitize(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{
		"unsafe.html": `<script>alert(1)</script><b>{{ word }}</b> trailing`,
	})

	backend := newBackend(t, backends.Config{
		Dirs:    []string{dir},
		Options: map[string]any{"sanitize": "strict"},
	})
	tmpl, err := backend.GetTemplate("unsafe.html")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	out, err := tmpl.Render(map[string]any{"word": "bold"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>") {
		t.Fatalf("sanitize should strip markup, got %q", out)
	}
	if !strings.Contains(out, "bold") || !strings.Contains(out, "trailing") {
		t.Fatalf("sanitize should keep text content, got %q", out)
	}
}

func TestOptions_Unknown(t *testing.T) {
	_, err := pongo2.New(backends.Config{
		Name:    "pongo2",
		Options: map[string]any{"loaders": []any{}},
	})
	if err == nil || !strings.Contains(err.Error(), "loaders") {
		t.Fatalf("expected unknown option error, got %v", err)
	}
}
