// Command render-static renders the templates declared in a settings file's
// STATIC_TEMPLATES configuration to disk. With no template arguments every
// configured template is rendered; otherwise only the named templates are.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/bckohan/django-static-templates/pkg/engine"
	"github.com/bckohan/django-static-templates/pkg/settings"
)

func main() {
	settingsPath := flag.String("settings", "settings.yaml", "settings file with STATIC_TEMPLATES")
	destination := flag.String("destination", "", "override the output destination (single template only)")
	contextJSON := flag.String("context", "", "JSON object overlaid on the configured context")
	noInput := flag.Bool("noinput", false, "overwrite existing files without asking")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	hostSettings, err := settings.Load(*settingsPath)
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	var override map[string]any
	if *contextJSON != "" {
		if err := json.Unmarshal([]byte(*contextJSON), &override); err != nil {
			logger.Error("invalid -context value", "error", err)
			os.Exit(1)
		}
	}

	eng, err := engine.New(nil, engine.WithSettings(hostSettings), engine.WithLogger(logger))
	if err != nil {
		logger.Error("failed to initialize engine", "error", err)
		os.Exit(1)
	}

	names := flag.Args()
	if len(names) == 0 {
		for name := range eng.Templates() {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		logger.Error("no templates configured and none named")
		os.Exit(1)
	}
	if *destination != "" && len(names) != 1 {
		logger.Error("-destination requires exactly one template argument")
		os.Exit(1)
	}

	failed := false
	for _, name := range names {
		opts := buildRenderOptions(*destination, override)

		if !*noInput {
			proceed, err := confirmOverwrite(eng, name, *destination)
			if err != nil {
				if errors.Is(err, terminal.InterruptErr) {
					os.Exit(1)
				}
				logger.Error("confirmation failed", "template", name, "error", err)
				os.Exit(1)
			}
			if !proceed {
				logger.Info("skipped", "template", name)
				continue
			}
		}

		dest, err := eng.RenderToDisk(name, opts...)
		if err != nil {
			logger.Error("render failed", "template", name, "error", err)
			failed = true
			continue
		}
		fmt.Printf("rendered %s -> %s\n", name, dest)
	}
	if failed {
		os.Exit(1)
	}
}

func buildRenderOptions(destination string, override map[string]any) []engine.RenderOption {
	var opts []engine.RenderOption
	if destination != "" {
		opts = append(opts, engine.WithDestination(destination))
	}
	if len(override) > 0 {
		opts = append(opts, engine.WithContext(override))
	}
	return opts
}

// confirmOverwrite prompts before clobbering a destination that already
// exists. App-derived destinations are only known after lookup, so the prompt
// covers the destinations knowable up front: the explicit override and the
// configured dest.
func confirmOverwrite(eng *engine.Engine, name, destination string) (bool, error) {
	dest := destination
	if dest == "" {
		dest = eng.Templates()[name].Dest
	}
	if dest == "" {
		return true, nil
	}
	if _, err := os.Stat(dest); err != nil {
		return true, nil
	}

	proceed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s already exists, overwrite?", dest),
		Default: true,
	}
	if err := survey.AskOne(prompt, &proceed); err != nil {
		return false, err
	}
	return proceed, nil
}
