package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/pmoura/loom/core/graph"
)

// Observer receives node lifecycle events during a run. Each callback fires
// exactly once per node per run. Implementations must not block: the
// scheduler is serial and a slow observer stalls the whole run.
type Observer interface {
	// OnNodeStart fires when a node transitions to running.
	OnNodeStart(nodeID string)

	// OnNodeComplete fires when a node finishes successfully, with its output.
	OnNodeComplete(nodeID string, output string)

	// OnNodeError fires when a node fails, with the failure message.
	OnNodeError(nodeID string, message string)
}

// NopObserver is an Observer that ignores every event. It is the default.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) OnNodeStart(string)            {}
func (NopObserver) OnNodeComplete(string, string) {}
func (NopObserver) OnNodeError(string, string)    {}

// SlogObserver logs node lifecycle events through a slog logger. Completed
// outputs are logged at debug level since they can be large data URLs.
type SlogObserver struct {
	logger *slog.Logger
}

var _ Observer = (*SlogObserver)(nil)

// NewSlogObserver creates an observer backed by the given logger. A nil
// logger falls back to slog.Default().
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnNodeStart(nodeID string) {
	o.logger.Info("node started", "node_id", nodeID)
}

func (o *SlogObserver) OnNodeComplete(nodeID string, output string) {
	o.logger.Info("node completed", "node_id", nodeID, "output_length", len(output))
	o.logger.Debug("node output", "node_id", nodeID, "output", output)
}

func (o *SlogObserver) OnNodeError(nodeID string, message string) {
	o.logger.Error("node failed", "node_id", nodeID, "error", message)
}

// NodeOutput pairs a node ID with its produced text.
type NodeOutput struct {
	NodeID string
	Text   string
}

// Outputs is the run's output cache: node ID to produced text, preserving
// completion order. Failed nodes never appear; re-running a node overwrites
// its text in place without changing its position.
type Outputs struct {
	order []string
	texts map[string]string
}

// NewOutputs creates an empty output cache.
func NewOutputs() *Outputs {
	return &Outputs{texts: make(map[string]string)}
}

// Set records the output of a node. First insertion fixes the node's position
// in completion order; later insertions overwrite the text only.
func (o *Outputs) Set(nodeID, text string) {
	if _, exists := o.texts[nodeID]; !exists {
		o.order = append(o.order, nodeID)
	}
	o.texts[nodeID] = text
}

// Get returns the cached output for a node and whether one exists.
func (o *Outputs) Get(nodeID string) (string, bool) {
	text, ok := o.texts[nodeID]
	return text, ok
}

// All returns every cached output in completion order.
func (o *Outputs) All() []NodeOutput {
	all := make([]NodeOutput, 0, len(o.order))
	for _, nodeID := range o.order {
		all = append(all, NodeOutput{NodeID: nodeID, Text: o.texts[nodeID]})
	}
	return all
}

// Len returns the number of cached outputs.
func (o *Outputs) Len() int {
	return len(o.order)
}

// Context carries the per-run state shared by the scheduler and observers:
// a run identifier, the output cache, provider credentials and the observer.
type Context struct {
	// RunID uniquely identifies this run in logs and observer events.
	RunID string

	// Outputs is the run's output cache. Populated as nodes complete.
	Outputs *Outputs

	// Credentials maps each provider family to its API key. A node whose
	// provider has no entry fails with a configuration error.
	Credentials map[graph.Provider]string

	// Observer receives node lifecycle events. Defaults to NopObserver.
	Observer Observer
}

// NewContext creates a run context with a fresh run ID, an empty output
// cache, no credentials and a no-op observer.
func NewContext() *Context {
	return &Context{
		RunID:       uuid.NewString(),
		Outputs:     NewOutputs(),
		Credentials: make(map[graph.Provider]string),
		Observer:    NopObserver{},
	}
}

// WithCredential registers the API key for a provider family.
func (c *Context) WithCredential(provider graph.Provider, apiKey string) *Context {
	c.Credentials[provider] = apiKey
	return c
}

// WithObserver sets the observer receiving node lifecycle events.
func (c *Context) WithObserver(observer Observer) *Context {
	c.Observer = observer
	return c
}
