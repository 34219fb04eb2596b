// Package procprobe answers "is this PID alive?" across platforms, the
// shared primitive behind the Instance Registry's liveness filter
// (spec §4.8) and the Cleanup Engine's stale-directory scan (spec §4.9).
package procprobe

// Alive reports whether pid refers to a running process. It never
// returns an error: an unprobeable PID is treated as dead, matching
// the spec's "if dead, remove" cleanup semantics.
func Alive(pid int) bool {
	return alive(pid)
}
