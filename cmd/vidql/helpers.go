package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/config"
	"github.com/okabe/vidql/internal/dispatch"
	"github.com/okabe/vidql/internal/engine"
	"github.com/okabe/vidql/internal/intent"
	"github.com/okabe/vidql/internal/library"
	"github.com/okabe/vidql/internal/session"
	"github.com/okabe/vidql/internal/synth"
)

// isTTY reports whether stdout is a terminal, gating pretty output.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// exitOnError prints the error and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// buildEngine wires a local engine from the environment. The returned
// closer flushes the sqlite store.
func buildEngine() (*engine.Engine, *library.Library, func(), error) {
	env := config.Env()
	paths := config.GetPaths()

	for _, dir := range []string{paths.Data, env.MediaDir, env.ArtifactsDir} {
		if err := config.EnsureDir(dir); err != nil {
			return nil, nil, nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	storage, err := session.NewStorage(paths.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open session store: %w", err)
	}

	registry := capability.NewRegistry()
	if env.TranscriptionURL != "" {
		registry.Register(capability.NewTranscription(env.TranscriptionURL))
	}
	if env.VisionURL != "" {
		registry.Register(capability.NewVision(env.VisionURL))
	}
	if env.GenerationURL != "" {
		registry.Register(capability.NewGeneration(env.GenerationURL))
	}
	if env.LanguageURL != "" {
		registry.Register(capability.NewLanguage(env.LanguageURL))
	}

	var language *capability.LanguageClient
	if inv, err := registry.Lookup(capability.Language); err == nil {
		language = capability.NewLanguageClient(inv)
	}

	lib := library.New(env.MediaDir)
	eng := engine.New(engine.Config{
		Sessions:     session.NewStore(storage),
		Classifier:   intent.NewClassifier(language, env.Model),
		Dispatcher:   dispatch.New(registry, env.Model, env.ArtifactsDir),
		Synthesizer:  synth.New(language, env.Model),
		Registry:     registry,
		Library:      lib,
		ArtifactsDir: env.ArtifactsDir,
	})

	closer := func() { storage.Close() }
	return eng, lib, closer, nil
}
