// Package wasm2rs transpiles a WebAssembly binary module into standalone
// Rust source: SSA IR construction by abstract interpretation, module
// metadata assembly, a conservative IR optimizer, and a Rust code
// generation backend, wired together behind the single Transpile entry
// point per spec.md §2.
package wasm2rs

import (
	"github.com/gowasm/wasm2rs/internal/codegen"
	"github.com/gowasm/wasm2rs/internal/irbuilder"
	"github.com/gowasm/wasm2rs/internal/optimizer"
	"github.com/gowasm/wasm2rs/internal/wasmbin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Transpile runs the full pipeline over wasmBytes and returns the
// generated Rust source text. It is a pure function: no goroutines, no
// shared mutable package state, deterministic given the same bytes and
// opts.
func Transpile(wasmBytes []byte, opts Options) (string, error) {
	opts = opts.withDefaults()
	if !validMode(opts.Mode) {
		return "", errors.Errorf("unsupported mode %q", opts.Mode)
	}

	log := logrus.WithField("component", "wasm2rs")

	log.Debug("stage: parse")
	parsed, err := wasmbin.Decode(wasmBytes)
	if err != nil {
		return "", wrapStage("parse", errors.Wrap(err, "decoding wasm binary"))
	}

	log.Debug("stage: ir-construction / assembly")
	info, err := irbuilder.AssembleModuleInfo(parsed, irbuilder.Options{MaxPages: opts.MaxPages})
	if err != nil {
		return "", wrapStage("assembly", err)
	}

	log.Debug("stage: optimization")
	optimizer.OptimizeIR(info)

	log.Debug("stage: codegen")
	source, err := codegen.GenerateModuleWithInfo(codegen.RustBackend{}, info)
	if err != nil {
		return "", wrapStage("codegen", err)
	}

	log.Debug("stage: done")
	return source, nil
}
