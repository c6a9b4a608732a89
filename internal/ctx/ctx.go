/*
 * lily-cc - compilation context
 *
 * Copyright 2024, Richard Cornwell
 *
 * Bundles the diagnostic sink, trace logger, and resolved target/ABI
 * options that every pass needs, the way emu/core/core.go's small
 * unexported struct bundles the channels and running-state a CPU loop
 * needs rather than threading five parameters through every call. Owns no
 * arena itself: each *ir.Func is already its own arena (§5), so Context
 * only owns the state that spans a whole compilation rather than one
 * function.
 */

package ctx

import (
	"log/slog"

	"github.com/rcornwell/lily-cc/internal/config"
	"github.com/rcornwell/lily-cc/internal/diag"
)

// Context is the compilation-wide state every driver stage reads: where
// diagnostics go, what's being traced, and which target/ABI codegen runs
// against.
type Context struct {
	Logger *slog.Logger
	Sink   diag.Sink
	Target *config.Target
	trace  map[string]bool
}

// New builds a Context. sink may be nil if the caller does not want source
// diagnostics collected (e.g. a unit test exercising only the backend).
func New(logger *slog.Logger, sink diag.Sink, target *config.Target, opts config.Options) *Context {
	return &Context{Logger: logger, Sink: sink, Target: target, trace: opts.Trace}
}

// Report forwards a source-facing diagnostic to the sink, if any.
func (c *Context) Report(r diag.Record) {
	if c.Sink != nil {
		c.Sink.Report(r)
	}
}

// Bug raises an unrecoverable compiler-invariant violation (§7): it logs
// through c's logger and panics, to be recovered only at cmd/lilyc's
// outermost boundary or a test's diag.Recover.
func (c *Context) Bug(code, format string, args ...any) {
	diag.Raise(c.Logger, code, format, args...)
}

// Tracing reports whether pass should emit its debug trace, per a
// "-trace=ssa,opt,isel" style flag.
func (c *Context) Tracing(pass string) bool {
	return c.trace[pass]
}
