package main

import (
	"os"

	wasm2rs "github.com/gowasm/wasm2rs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newTranspileCmd implements `wasm2rs transpile <input.wasm> [--output
// <path>] [--max-pages N] [--config <path>]` per SPEC_FULL.md §6: the
// spec's single-executable surface, expressed as cobra's conventional
// subcommand shape the way the teacher's own cmd/wazero grows subcommands
// off a shared root.
func newTranspileCmd() *cobra.Command {
	var outputPath string
	var maxPages int
	var configPath string
	var mode string

	cmd := &cobra.Command{
		Use:   "transpile <input.wasm>",
		Short: "Translate a WebAssembly binary module into Rust source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(configPath, maxPages, mode, cmd.Flags())
			if err != nil {
				return err
			}

			wasmPath := args[0]
			wasmBytes, err := os.ReadFile(wasmPath)
			if err != nil {
				return errors.Wrapf(err, "reading %s", wasmPath)
			}

			logrus.WithField("input", wasmPath).Info("transpiling")
			source, err := wasm2rs.Transpile(wasmBytes, opts)
			if err != nil {
				return errors.Wrapf(err, "transpiling %s", wasmPath)
			}

			out := cmd.OutOrStdout()
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return errors.Wrapf(err, "creating %s", outputPath)
				}
				defer f.Close()
				out = f
			}
			_, err = out.Write([]byte(source))
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path for generated Rust source (default stdout)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page ceiling for a memory with no declared maximum (default 256)")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file of Options (max_pages, mode)")
	cmd.Flags().StringVar(&mode, "mode", "", "code generation backend (default safe)")
	return cmd
}

// resolveOptions loads Options from --config when given, then applies
// --max-pages/--mode as overrides whenever the caller actually set them,
// per SPEC_FULL.md §6's "overridable by flags" rule.
func resolveOptions(configPath string, maxPages int, mode string, flags interface{ Changed(string) bool }) (wasm2rs.Options, error) {
	var opts wasm2rs.Options
	if configPath != "" {
		loaded, err := wasm2rs.LoadOptions(configPath)
		if err != nil {
			return wasm2rs.Options{}, err
		}
		opts = loaded
	}
	if flags.Changed("max-pages") {
		opts.MaxPages = maxPages
	}
	if flags.Changed("mode") {
		opts.Mode = mode
	}
	return opts, nil
}
