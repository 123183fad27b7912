package graph

import (
	"fmt"
	"time"
)

// NodeKind distinguishes the two kinds of work a node can represent.
type NodeKind string

const (
	// KindAI is a node that calls an AI provider with a composed prompt.
	KindAI NodeKind = "ai"

	// KindResult is a passthrough sink: its output is the joined text of its
	// upstream nodes, with no provider call involved.
	KindResult NodeKind = "result"
)

// Provider identifies the backend family an AI node dispatches to. The set is
// closed: the dispatch layer switches exhaustively over these values and
// rejects anything else as a configuration error.
type Provider string

const (
	// ProviderChat is the text-generation family (chat/completions style APIs).
	ProviderChat Provider = "chat"

	// ProviderImageGen is the image-generation family (two-phase submit/poll jobs).
	ProviderImageGen Provider = "imagegen"

	// ProviderSpeech is the text-to-speech family. Speech nodes have no prompt
	// template; their input is the upstream text or the node's configured text.
	ProviderSpeech Provider = "speech"

	// ProviderVideoGen is the video-generation family (two-phase submit/poll jobs
	// with a longer polling budget).
	ProviderVideoGen Provider = "videogen"

	// ProviderReader is the text-extraction family: single-shot reads of a URL
	// found in the prompt, with per-mode output formatting.
	ProviderReader Provider = "reader"
)

// KnownProvider reports whether p is one of the closed set of provider
// families the dispatch layer understands.
func KnownProvider(p Provider) bool {
	switch p {
	case ProviderChat, ProviderImageGen, ProviderSpeech, ProviderVideoGen, ProviderReader:
		return true
	}
	return false
}

// Status represents the lifecycle status of a node during a run.
type Status string

const (
	// StatusPending indicates the node has unresolved incoming edges.
	StatusPending Status = "pending"

	// StatusReady indicates all incoming edges are resolved and the node is
	// queued for execution.
	StatusReady Status = "ready"

	// StatusRunning indicates the node is currently executing.
	StatusRunning Status = "running"

	// StatusComplete indicates the node finished and produced an output.
	StatusComplete Status = "complete"

	// StatusError indicates the node failed; the message is recorded on the node.
	StatusError Status = "error"
)

// NodeData holds the user-supplied configuration of a node. All fields are
// JSON-serializable so graphs can be loaded from the editor payload as-is.
type NodeData struct {
	// Provider selects the backend family for AI nodes.
	Provider Provider `json:"provider,omitempty"`

	// Model is the requested model variant. Adapters treat it as the first
	// candidate of their fallback chain; empty means the adapter's default.
	Model string `json:"model,omitempty"`

	// Mode selects an adapter sub-mode: the reader's output format
	// (content, transcript, json) or the chat adapter's search mode.
	Mode string `json:"mode,omitempty"`

	// Prompt is the node's prompt template. The literal token {{input}} is
	// replaced with the joined upstream text during composition.
	Prompt string `json:"prompt,omitempty"`

	// SystemPrompt is an optional system instruction passed to text providers.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Temperature is the sampling temperature [0..2].
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens optionally caps the response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// VoiceID selects the voice for speech nodes.
	VoiceID string `json:"voice_id,omitempty"`

	// Images are optional base64 data URLs attached to text-provider calls.
	Images []string `json:"images,omitempty"`

	// Text is the configured input for speech nodes with no upstream edges.
	Text string `json:"text,omitempty"`
}

// Node is a single unit of work in the graph: an AI provider call or a
// passthrough result sink. Status, Err and CompletedAt are owned by the
// scheduler and mutated only during a run.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Data NodeData `json:"data"`

	// Status is the node's runtime lifecycle state. It is reset at the start
	// of each run.
	Status Status `json:"status,omitempty"`

	// Err holds the human-readable failure message when Status is StatusError.
	Err string `json:"error,omitempty"`

	// CompletedAt records when the node reached StatusComplete, for observers.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Edge is a directed dependency: Source feeds its output into Target.
// Multiple edges may target the same node (multi-input join) and a node may
// fan out to many targets.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the node/edge representation the engine executes. It owns its
// nodes exclusively; the scheduler mutates node statuses during a run.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Node returns the node with the given ID, or nil if it does not exist.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Validate checks the structural integrity of the graph: node IDs must be
// unique and non-empty, AI nodes must name a known provider, and every edge
// must reference existing nodes. It does not reject cycles; see [Graph.CycleNodes].
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("graph contains a node with an empty id")
		}
		if _, duplicate := seen[n.ID]; duplicate {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}

		switch n.Kind {
		case KindAI:
			if !KnownProvider(n.Data.Provider) {
				return fmt.Errorf("node %q references unknown provider %q", n.ID, n.Data.Provider)
			}
		case KindResult:
			// Result nodes carry no provider configuration.
		default:
			return fmt.Errorf("node %q has unknown kind %q", n.ID, n.Kind)
		}
	}

	for _, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("edge references unknown source node %q", e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("edge references unknown target node %q", e.Target)
		}
	}

	return nil
}

// Adjacency returns the successor list per node ID, preserving edge order.
// Every node appears as a key, including nodes with no outgoing edges.
func (g *Graph) Adjacency() map[string][]string {
	successors := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		successors[n.ID] = nil
	}
	for _, e := range g.Edges {
		successors[e.Source] = append(successors[e.Source], e.Target)
	}
	return successors
}

// InDegrees returns the number of incoming edges per node ID. Every node
// appears as a key; roots have degree zero.
func (g *Graph) InDegrees() map[string]int {
	degrees := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		degrees[n.ID] = 0
	}
	for _, e := range g.Edges {
		degrees[e.Target]++
	}
	return degrees
}

// CycleNodes returns the IDs of nodes that can never become ready because
// they sit on a dependency cycle (or depend on one), in node declaration
// order. An empty result means the graph is acyclic.
//
// The scheduler does not call this: per the engine contract, cycle
// participants are silently left in their initial state and the run still
// terminates. Callers that prefer to reject cyclic graphs up front can use
// this to report them.
func (g *Graph) CycleNodes() []string {
	degrees := g.InDegrees()
	successors := g.Adjacency()

	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if degrees[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	reached := make(map[string]struct{}, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		reached[id] = struct{}{}

		for _, successor := range successors[id] {
			degrees[successor]--
			if degrees[successor] == 0 {
				queue = append(queue, successor)
			}
		}
	}

	var stuck []string
	for _, n := range g.Nodes {
		if _, ok := reached[n.ID]; !ok {
			stuck = append(stuck, n.ID)
		}
	}
	return stuck
}

// ResetStatus returns every node to its initial lifecycle state for a new
// run: StatusReady for nodes with no incoming edges, StatusPending otherwise.
// Failure messages and completion timestamps are cleared.
func (g *Graph) ResetStatus() {
	degrees := g.InDegrees()
	for _, n := range g.Nodes {
		if degrees[n.ID] == 0 {
			n.Status = StatusReady
		} else {
			n.Status = StatusPending
		}
		n.Err = ""
		n.CompletedAt = nil
	}
}
