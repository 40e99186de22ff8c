package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bindc/internal/driver"
	"bindc/internal/layout"
	"bindc/internal/memtu"
)

var (
	dumpConfigPath string
	dumpASTPath    string
	dumpSurface    string
	dumpTriple     string
)

func init() {
	dumpCmd.Flags().StringVar(&dumpConfigPath, "config", "", "path to bindc.toml (default: search upward)")
	dumpCmd.Flags().StringVar(&dumpASTPath, "ast", "", "JSON translation unit dump of the input header (required)")
	dumpCmd.Flags().StringVar(&dumpSurface, "surface", "tas", "surface to dump (cas|tas)")
	dumpCmd.Flags().StringVar(&dumpTriple, "target", "", "target triple (default: first configured triple)")
	_ = dumpCmd.MarkFlagRequired("ast")
}

// dumpCmd runs the pipeline for a single triple and prints the intermediate
// surface as JSON. Diagnostics still go to stderr so the output stays parseable.
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print an intermediate surface as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorMode(cmd)
		if dumpSurface != "cas" && dumpSurface != "tas" {
			fmt.Fprintf(os.Stderr, "unknown surface %q (must be cas or tas)\n", dumpSurface)
			os.Exit(2)
		}

		manifest, err := loadManifest(dumpConfigPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg := manifest.Config

		triple := dumpTriple
		if triple == "" {
			triple = cfg.TargetTriples[0]
		}
		target, err := layout.ByTriple(triple)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		data, err := os.ReadFile(dumpASTPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		b, err := memtu.LoadJSONWidths(bytes.NewReader(data), memtu.Widths{
			Long: int64(target.LongSize),
			Ptr:  int64(target.PtrSize),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
		req := driver.Request{
			Header: cfg.InputHeaderPath,
			Units: []driver.Unit{{
				Triple: triple,
				TU:     b.Unit(),
				Digest: sha256.Sum256(data),
			}},
			Aliases:         cfg.aliases(),
			IgnoredNames:    cfg.IgnoredNames,
			ClassName:       cfg.ClassName,
			LibraryName:     cfg.LibraryName,
			EmitSystemTypes: cfg.EmitSystemTypes,
			MergeStrategy:   cfg.strategy(),
			PackageName:     cfg.PackageName,
			MaxDiagnostics:  maxDiags,
		}

		res, err := driver.Generate(cmd.Context(), req)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		run := res.Runs[0]
		printBag(run.Bag, run)

		switch dumpSurface {
		case "cas":
			if run.CAS == nil {
				os.Exit(1)
			}
			if err := run.CAS.WriteJSON(cmd.OutOrStdout()); err != nil {
				return err
			}
		case "tas":
			if run.TAS == nil {
				os.Exit(1)
			}
			if err := run.TAS.WriteJSON(cmd.OutOrStdout()); err != nil {
				return err
			}
		}
		if res.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}
