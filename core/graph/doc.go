// Package graph defines the node/edge representation executed by the loom
// engine. A graph is a set of [Node] values (AI provider calls or passthrough
// result sinks) connected by directed [Edge] dependencies; the engine derives
// execution order from it via [Graph.InDegrees] and [Graph.Adjacency].
//
// The model is deliberately plain: all types are JSON-serializable so a graph
// can be loaded directly from an editor payload. [Graph.Validate] checks
// structural integrity (unique ids, known providers, dangling edges) and
// [Graph.CycleNodes] reports nodes trapped on dependency cycles.
package graph
