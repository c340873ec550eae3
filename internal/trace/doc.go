// Package trace records what the conformance layer does while it runs.
//
// Specialized conformances compute type witnesses lazily, so the expensive
// work happens inside what callers see as plain reads. Tracing makes those
// hidden steps visible: cache misses, identity short-cuts, conformance
// lookups and the driver phases around them.
//
// # Usage
//
//	conformctl check --trace=- --trace-level=detail fixtures/collections.toml
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only crash dumps
//   - LevelPhase: Driver phases
//   - LevelDetail: Per-conformance events (specialization, lookup)
//   - LevelDebug: Everything including witness cache hits
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeDriver, "load", 0)
//	defer span.End("")
package trace
