// Package embedding converts texts into vectors over a bounded worker pool.
//
// Each text becomes one task tagged with its input index. Tasks run on an
// ants pool, each embedding call carries its own timeout, and failed calls
// are retried with exponential backoff. Texts that still fail are reported
// by index instead of failing the whole batch, and results are reassembled
// in input order regardless of completion order.
package embedding
