package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"bindc/internal/layout"
	"bindc/internal/merge"
	"bindc/internal/tmap"
)

const noBindcTomlMessage = "no bindc.toml found\nplease pass --config or run inside a project directory"

// projectConfig is the bindc.toml schema.
type projectConfig struct {
	// InputHeaderPath is the header the bindings describe. Required.
	InputHeaderPath    string        `toml:"input_header_path"`
	IncludeDirectories []string      `toml:"include_directories"`
	TargetTriples      []string      `toml:"target_triples"`
	Aliases            []aliasConfig `toml:"alias"`
	IgnoredNames       []string      `toml:"ignored_names"`
	ClassName          string        `toml:"class_name"`
	LibraryName        string        `toml:"library_name"`
	PackageName        string        `toml:"package_name"`
	EmitSystemTypes    bool          `toml:"emit_system_types"`
	MergeStrategy      string        `toml:"merge_strategy"`
}

type aliasConfig struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

func findBindcToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "bindc.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadManifest(explicitPath string) (*projectManifest, error) {
	path := explicitPath
	if path == "" {
		found, ok, err := findBindcToml(".")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(noBindcTomlMessage)
		}
		path = found
	}
	cfg, err := loadProjectConfig(path)
	if err != nil {
		return nil, err
	}
	return &projectManifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return projectConfig{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.InputHeaderPath == "" {
		return projectConfig{}, fmt.Errorf("%s: input_header_path is required", path)
	}
	if len(cfg.TargetTriples) == 0 {
		cfg.TargetTriples = []string{layout.X86_64LinuxGNU().Triple}
	}
	for _, triple := range cfg.TargetTriples {
		if _, err := layout.ByTriple(triple); err != nil {
			return projectConfig{}, fmt.Errorf("%s: unknown target triple %q (known: %v)",
				path, triple, layout.Triples())
		}
	}
	if _, err := merge.ParseStrategy(cfg.MergeStrategy); err != nil {
		return projectConfig{}, fmt.Errorf("%s: %v", path, err)
	}
	return cfg, nil
}

func (c projectConfig) aliases() []tmap.Alias {
	out := make([]tmap.Alias, len(c.Aliases))
	for i, a := range c.Aliases {
		out[i] = tmap.Alias{From: a.From, To: a.To}
	}
	return out
}

func (c projectConfig) strategy() merge.Strategy {
	s, _ := merge.ParseStrategy(c.MergeStrategy)
	return s
}
