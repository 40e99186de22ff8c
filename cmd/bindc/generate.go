package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bindc/internal/diag"
	"bindc/internal/diagfmt"
	"bindc/internal/driver"
	"bindc/internal/layout"
	"bindc/internal/memtu"
)

var (
	generateConfigPath string
	generateASTPath    string
	generateOutPath    string
	generateUIMode     string
	generateNoCache    bool
	generateJSONDiags  bool
	generateTimings    bool
)

func init() {
	generateCmd.Flags().StringVar(&generateConfigPath, "config", "", "path to bindc.toml (default: search upward)")
	generateCmd.Flags().StringVar(&generateASTPath, "ast", "", "JSON translation unit dump of the input header (required)")
	generateCmd.Flags().StringVarP(&generateOutPath, "out", "o", "bindings.go", "output file")
	generateCmd.Flags().StringVar(&generateUIMode, "ui", "auto", "progress display (auto|live|plain)")
	generateCmd.Flags().BoolVar(&generateNoCache, "no-cache", false, "bypass the surface cache")
	generateCmd.Flags().BoolVar(&generateJSONDiags, "json", false, "print diagnostics as JSON")
	generateCmd.Flags().BoolVar(&generateTimings, "timings", false, "report per-stage timings as diagnostics")
	_ = generateCmd.MarkFlagRequired("ast")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the full pipeline and write the generated bindings",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorMode(cmd)
		cleanup, err := setupProfiling(cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		// os.Exit skips defers, so every exit path runs cleanup explicitly.
		exit := func(code int) {
			cleanup()
			os.Exit(code)
		}
		defer cleanup()

		manifest, err := loadManifest(generateConfigPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(2)
		}
		req, err := buildRequest(cmd, manifest)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(2)
		}

		res, err := runPipeline(cmd.Context(), req)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(2)
		}

		printDiagnostics(res)
		if res.HasErrors() {
			exit(1)
		}

		if err := os.WriteFile(generateOutPath, res.Output, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(2)
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", generateOutPath)
		}
		return nil
	},
}

// buildRequest turns the manifest plus flags into a driver request, loading
// the translation unit once per target triple with that triple's widths.
func buildRequest(cmd *cobra.Command, manifest *projectManifest) (driver.Request, error) {
	cfg := manifest.Config

	data, err := os.ReadFile(generateASTPath)
	if err != nil {
		return driver.Request{}, err
	}
	digest := sha256.Sum256(data)

	units := make([]driver.Unit, 0, len(cfg.TargetTriples))
	for _, triple := range cfg.TargetTriples {
		target, err := layout.ByTriple(triple)
		if err != nil {
			return driver.Request{}, err
		}
		b, err := memtu.LoadJSONWidths(bytes.NewReader(data), memtu.Widths{
			Long: int64(target.LongSize),
			Ptr:  int64(target.PtrSize),
		})
		if err != nil {
			return driver.Request{}, err
		}
		units = append(units, driver.Unit{Triple: triple, TU: b.Unit(), Digest: digest})
	}

	maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
	req := driver.Request{
		Header:          cfg.InputHeaderPath,
		Units:           units,
		Aliases:         cfg.aliases(),
		IgnoredNames:    cfg.IgnoredNames,
		ClassName:       cfg.ClassName,
		LibraryName:     cfg.LibraryName,
		EmitSystemTypes: cfg.EmitSystemTypes,
		MergeStrategy:   cfg.strategy(),
		PackageName:     cfg.PackageName,
		MaxDiagnostics:  maxDiags,
		CollectTimings:  generateTimings,
	}
	if !generateNoCache {
		cache, err := driver.OpenCache("bindc")
		if err == nil {
			req.Cache = cache
		}
	}
	return req, nil
}

func runPipeline(ctx context.Context, req driver.Request) (*driver.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	live := generateUIMode == "live" ||
		(generateUIMode == "auto" && isTerminal(os.Stdout) && len(req.Units) > 1)
	if !live {
		return driver.Generate(ctx, req)
	}
	triples := make([]string, len(req.Units))
	for i, u := range req.Units {
		triples[i] = u.Triple
	}
	return runGenerateWithUI(ctx, req.Header, triples, req)
}

func printDiagnostics(res *driver.Result) {
	for _, run := range res.Runs {
		printBag(run.Bag, run)
	}
	if res.MergeBag != nil && res.MergeBag.Len() > 0 {
		res.MergeBag.Sort()
		if generateJSONDiags {
			_ = diagfmt.JSON(os.Stderr, res.MergeBag, nil, diagfmt.JSONOpts{IncludeNotes: true})
		} else {
			diagfmt.Pretty(os.Stderr, res.MergeBag, nil, diagfmt.PrettyOpts{Color: !color.NoColor, ShowNotes: true})
		}
	}
}

func printBag(bag *diag.Bag, run *driver.TargetRun) {
	if bag.Len() == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "-- %s --\n", run.Triple)
	if generateJSONDiags {
		_ = diagfmt.JSON(os.Stderr, bag, run.FS, diagfmt.JSONOpts{IncludeNotes: true})
		return
	}
	diagfmt.Pretty(os.Stderr, bag, run.FS, diagfmt.PrettyOpts{
		Color:       !color.NoColor,
		ShowNotes:   true,
		ShowPreview: true,
	})
}

func applyColorMode(cmd *cobra.Command) {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stderr)
	}
}
