// Package engine executes workflow graphs. The scheduler is deliberately
// serial: nodes run one at a time in topological order, each node at most
// once per run. A node failure is recorded on the node and reported to the
// run's observer; the run continues and downstream nodes see an empty
// upstream text in place of the missing output.
//
// Execution state lives in a per-run [Context]: an insertion-ordered output
// cache, provider credentials, and an [Observer] for lifecycle events. The
// [Dispatcher] routes each AI node to the adapter for its provider family.
package engine
