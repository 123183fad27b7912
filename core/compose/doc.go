// Package compose resolves the effective input text of a graph node from its
// prompt template and the outputs of its upstream nodes. Upstream outputs are
// joined with a fixed separator in edge-discovery order, substituted for the
// {{input}} placeholder when the template carries one, or wrapped around the
// template with fixed preambles when it does not. Speech nodes are templateless
// and synthesize the upstream text directly.
package compose
