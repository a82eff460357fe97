package engine_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bckohan/django-static-templates/pkg/backends/gotpl"
	"github.com/bckohan/django-static-templates/pkg/backends/pongo2"
	"github.com/bckohan/django-static-templates/pkg/engine"
	"github.com/bckohan/django-static-templates/pkg/settings"
	"github.com/bckohan/django-static-templates/pkg/testsupport"
)

func pongo2Engines(dirs ...string) []map[string]any {
	defs := make([]map[string]any, 0, len(dirs))
	for _, dir := range dirs {
		defs = append(defs, map[string]any{
			"BACKEND": pongo2.Identifier,
			"DIRS":    []string{dir},
		})
	}
	return defs
}

func TestRenderToDisk_ContextMergeOrder(t *testing.T) {
	templateDir := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"ctx.txt": "{{ a }} {{ b }} {{ c }} {{ d }}",
	})

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
		"context": map[string]any{"a": 1, "b": 2},
		"templates": map[string]any{
			"ctx.txt": map[string]any{
				"context": map[string]any{"b": 3, "c": 4},
			},
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "ctx.txt")
	got, err := eng.RenderToDisk("ctx.txt",
		engine.WithContext(map[string]any{"c": 5, "d": 6}),
		engine.WithDestination(dest),
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != dest {
		t.Fatalf("returned path %q, want %q", got, dest)
	}
	if content := testsupport.MustRead(t, dest); content != "1 3 5 6" {
		t.Fatalf("merged context rendered %q, want %q", content, "1 3 5 6")
	}
}

func TestRenderToDisk_SettingsAvailableInContext(t *testing.T) {
	templateDir := t.TempDir()
	staticRoot := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"root.txt": "{{ settings.StaticRoot }}",
	})

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
	}, engine.WithSettings(&settings.Settings{StaticRoot: staticRoot}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest, err := eng.RenderToDisk("root.txt")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if content := testsupport.MustRead(t, dest); content != staticRoot {
		t.Fatalf("settings handle rendered %q, want %q", content, staticRoot)
	}
}

func TestRenderToDisk_DestinationPrecedence(t *testing.T) {
	templateDir := t.TempDir()
	outDir := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"page.html": "content",
	})

	configured := filepath.Join(outDir, "configured.html")
	override := filepath.Join(outDir, "override.html")

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
		"templates": map[string]any{
			"page.html": map[string]any{"dest": configured},
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest, err := eng.RenderToDisk("page.html", engine.WithDestination(override))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if dest != override {
		t.Fatalf("call-time destination should win, got %q", dest)
	}
	if _, err := os.Stat(configured); !os.IsNotExist(err) {
		t.Fatalf("configured destination should be untouched: %v", err)
	}

	dest, err = eng.RenderToDisk("page.html")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if dest != configured {
		t.Fatalf("configured destination should be used, got %q", dest)
	}
}

func TestRenderToDisk_AppStaticDirDestination(t *testing.T) {
	appDir := t.TempDir()
	testsupport.WriteTree(t, appDir, map[string]string{
		"templates/blog/snippet.html": "from the blog app",
	})

	eng, err := engine.New(engine.Config{}, engine.WithSettings(&settings.Settings{
		InstalledApps: []settings.App{{Name: "blog", Path: appDir}},
	}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest, err := eng.RenderToDisk("blog/snippet.html")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := filepath.Join(appDir, "static", "blog", "snippet.html")
	if dest != want {
		t.Fatalf("app-relative destination %q, want %q", dest, want)
	}
	if content := testsupport.MustRead(t, dest); content != "from the blog app" {
		t.Fatalf("unexpected output %q", content)
	}
}

func TestRenderToDisk_StaticRootFallback(t *testing.T) {
	templateDir := t.TempDir()
	staticRoot := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"css/site.css": "body {}",
	})

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
	}, engine.WithSettings(&settings.Settings{StaticRoot: staticRoot}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest, err := eng.RenderToDisk("css/site.css")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := filepath.Join(staticRoot, "css", "site.css")
	if dest != want {
		t.Fatalf("static root destination %q, want %q", dest, want)
	}
}

func TestRenderToDisk_NoDestinationAnywhere(t *testing.T) {
	templateDir := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"orphan.html": "content",
	})

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	_, err = eng.RenderToDisk("orphan.html")
	if !errors.Is(err, engine.ErrImproperlyConfigured) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "orphan.html") {
		t.Fatalf("error should name the template: %v", err)
	}
}

func TestRenderToDisk_CreatesParentDirectories(t *testing.T) {
	templateDir := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"out.html": "deep",
	})

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "a", "b", "c", "out.html")
	if _, err := eng.RenderToDisk("out.html", engine.WithDestination(dest)); err != nil {
		t.Fatalf("render: %v", err)
	}
	if content := testsupport.MustRead(t, dest); content != "deep" {
		t.Fatalf("unexpected output %q", content)
	}
}

func TestRenderToDisk_FirstBackendWins(t *testing.T) {
	firstDir := t.TempDir()
	secondDir := t.TempDir()
	testsupport.WriteTree(t, firstDir, map[string]string{"shared.html": "first"})
	testsupport.WriteTree(t, secondDir, map[string]string{"shared.html": "second"})

	eng, err := engine.New(engine.Config{
		"ENGINES": []map[string]any{
			{"BACKEND": pongo2.Identifier, "NAME": "one", "DIRS": []string{firstDir}},
			{"BACKEND": pongo2.Identifier, "NAME": "two", "DIRS": []string{secondDir}},
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	dest, err := eng.RenderToDisk("shared.html",
		engine.WithDestination(filepath.Join(t.TempDir(), "shared.html")),
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if content := testsupport.MustRead(t, dest); content != "first" {
		t.Fatalf("lookup should prefer the first declared backend, got %q", content)
	}
}

func TestRenderToDisk_NotFoundChain(t *testing.T) {
	eng, err := engine.New(engine.Config{
		"ENGINES": []map[string]any{
			{"BACKEND": pongo2.Identifier, "DIRS": []string{t.TempDir()}},
			{"BACKEND": gotpl.Identifier, "DIRS": []string{t.TempDir()}},
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	_, err = eng.RenderToDisk("missing.html")
	var notFound *engine.TemplateNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
	if notFound.Name != "missing.html" {
		t.Fatalf("error should carry the template name, got %q", notFound.Name)
	}
	if len(notFound.Chain) != 2 {
		t.Fatalf("miss chain should have one entry per backend, got %d", len(notFound.Chain))
	}
}

func TestRenderToDisk_CallContextDoesNotMutateConfig(t *testing.T) {
	templateDir := t.TempDir()
	testsupport.WriteTree(t, templateDir, map[string]string{
		"ctx.txt": "{{ c }}",
	})

	eng, err := engine.New(engine.Config{
		"ENGINES": pongo2Engines(templateDir),
		"templates": map[string]any{
			"ctx.txt": map[string]any{
				"context": map[string]any{"c": 4},
			},
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	outDir := t.TempDir()
	first := filepath.Join(outDir, "first.txt")
	if _, err := eng.RenderToDisk("ctx.txt",
		engine.WithContext(map[string]any{"c": 5}),
		engine.WithDestination(first),
	); err != nil {
		t.Fatalf("render with override: %v", err)
	}
	if content := testsupport.MustRead(t, first); content != "5" {
		t.Fatalf("override render produced %q, want %q", content, "5")
	}

	second := filepath.Join(outDir, "second.txt")
	if _, err := eng.RenderToDisk("ctx.txt", engine.WithDestination(second)); err != nil {
		t.Fatalf("render without override: %v", err)
	}
	if content := testsupport.MustRead(t, second); content != "4" {
		t.Fatalf("override leaked into cached config, got %q", content)
	}
}
