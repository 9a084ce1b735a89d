// Package poller provides the fixed-interval poll loop shared by the
// cloud bridge services.
//
// Each bridge owns one Loop: an immediate cycle on Start, a ticker at
// the configured interval, and a Kick mechanism for the short-delay
// re-poll after a successful command. Cycles are single-flight — a
// tick that fires while the previous cycle is still running is skipped
// instead of piling up concurrent cycles against a slow vendor API.
//
// Stop is cooperative: it stops new ticks and cancels the loop context
// but does not forcibly interrupt an in-flight cycle.
package poller
