package wasm2rs

import "github.com/pkg/errors"

// TranslationError wraps a host-side, fatal failure encountered while
// parsing or translating a Wasm module: a malformed binary, an invalid
// operator sequence, an unbalanced control structure, a branch past the
// outermost frame, or an unknown function/type index. Distinguishing this
// from an ordinary wrapped error lets callers tell "this input cannot be
// transpiled" apart from, say, an I/O failure reading the input file.
//
// Runtime traps (divide-by-zero, out-of-bounds access, and the rest of
// spec.md §7's second error domain) are never represented here: they are a
// property of the generated Rust, expressed as WasmResult/WasmTrap values
// in the emitted source, not as a Go error any caller of Transpile sees.
type TranslationError struct {
	Stage string // "parse", "assembly" (which includes IR construction), or "codegen"
	cause error
}

func (e *TranslationError) Error() string {
	return e.cause.Error()
}

func (e *TranslationError) Unwrap() error {
	return e.cause
}

func newTranslationError(stage string, err error) *TranslationError {
	return &TranslationError{Stage: stage, cause: err}
}

// wrapStage wraps err (already carrying a pkg/errors stack and context from
// the package that produced it) as a TranslationError tagging the pipeline
// stage it failed in, or returns nil if err is nil.
func wrapStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return newTranslationError(stage, errors.WithMessage(err, stage))
}
