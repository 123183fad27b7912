package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmoura/loom/core/compose"
	"github.com/pmoura/loom/core/graph"
	"github.com/pmoura/loom/providers/backend"
)

// Engine executes workflow graphs. Nodes run strictly one at a time in
// topological order; a node failure is recorded on the node and reported to
// the observer but does not stop the run.
type Engine struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New creates an engine wired to the real provider adapters.
func New() *Engine {
	return &Engine{
		dispatcher: NewAdapterDispatcher(),
		logger:     slog.Default(),
	}
}

// WithDispatcher overrides the dispatcher routing nodes to adapters.
func (e *Engine) WithDispatcher(dispatcher Dispatcher) *Engine {
	e.dispatcher = dispatcher
	return e
}

// WithLogger sets the logger used for run progress.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// Run executes the whole graph. Node statuses are reset, then nodes execute
// serially in dependency order: a node becomes ready only when all its
// incoming edges are resolved, ties are broken by readiness order (FIFO).
// Nodes on a dependency cycle never become ready and are left in their
// initial state; the run still terminates.
//
// Run returns an error only for an invalid graph or a canceled context.
// Individual node failures are recorded on the node, reported through the
// observer, and leave the node's output absent from the cache.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, runContext *Context) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}

	g.ResetStatus()

	degrees := g.InDegrees()
	successors := g.Adjacency()

	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if degrees[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	e.logger.Info("run started", "run_id", runContext.RunID, "nodes", len(g.Nodes), "edges", len(g.Edges))

	executed := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled: %w", err)
		}

		nodeID := queue[0]
		queue = queue[1:]

		e.executeNode(ctx, g, g.Node(nodeID), runContext)
		executed++

		// A failed node still unblocks its dependents; they see an empty
		// upstream text because its output is absent from the cache.
		for _, successor := range successors[nodeID] {
			degrees[successor]--
			if degrees[successor] == 0 {
				if n := g.Node(successor); n.Status == graph.StatusPending {
					n.Status = graph.StatusReady
				}
				queue = append(queue, successor)
			}
		}
	}

	e.logger.Info("run finished", "run_id", runContext.RunID, "executed", executed, "outputs", runContext.Outputs.Len())
	return nil
}

// RunSingleNode re-executes one node using the upstream outputs already in
// the run context's cache, then refreshes directly connected result nodes so
// sinks stay consistent with the new output. Propagation stops there: other
// downstream nodes keep their cached outputs.
func (e *Engine) RunSingleNode(ctx context.Context, g *graph.Graph, nodeID string, runContext *Context) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}

	node := g.Node(nodeID)
	if node == nil {
		return fmt.Errorf("node %q does not exist", nodeID)
	}

	e.logger.Info("single-node run started", "run_id", runContext.RunID, "node_id", nodeID)

	e.executeNode(ctx, g, node, runContext)
	if node.Status != graph.StatusComplete {
		return nil
	}

	for _, edge := range g.Edges {
		if edge.Source != nodeID {
			continue
		}
		if target := g.Node(edge.Target); target.Kind == graph.KindResult {
			e.executeNode(ctx, g, target, runContext)
		}
	}
	return nil
}

// executeNode runs one node end to end: status transitions, observer events,
// upstream collection, evaluation, and output caching. Failures are recorded
// on the node and never propagated.
func (e *Engine) executeNode(ctx context.Context, g *graph.Graph, node *graph.Node, runContext *Context) {
	node.Status = graph.StatusRunning
	runContext.Observer.OnNodeStart(node.ID)
	e.logger.Debug("node running", "run_id", runContext.RunID, "node_id", node.ID, "kind", node.Kind)

	started := time.Now()
	output, err := e.evaluate(ctx, g, node, runContext)
	if err != nil {
		node.Status = graph.StatusError
		node.Err = err.Error()
		runContext.Observer.OnNodeError(node.ID, node.Err)
		e.logger.Warn("node failed", "run_id", runContext.RunID, "node_id", node.ID, "error", err.Error(), "duration", time.Since(started))
		return
	}

	completedAt := time.Now()
	node.Status = graph.StatusComplete
	node.CompletedAt = &completedAt
	runContext.Outputs.Set(node.ID, output)
	runContext.Observer.OnNodeComplete(node.ID, output)
	e.logger.Debug("node complete", "run_id", runContext.RunID, "node_id", node.ID, "duration", completedAt.Sub(started))
}

// evaluate produces the node's output text. Result nodes join their upstream
// outputs verbatim; AI nodes compose a prompt and dispatch to their provider
// adapter.
func (e *Engine) evaluate(ctx context.Context, g *graph.Graph, node *graph.Node, runContext *Context) (string, error) {
	upstream := upstreamTexts(g, node.ID, runContext.Outputs)

	if node.Kind == graph.KindResult {
		return compose.JoinUpstream(upstream), nil
	}

	prompt, err := compose.Compose(node, upstream)
	if err != nil {
		return "", err
	}

	provider := node.Data.Provider
	apiKey, ok := runContext.Credentials[provider]
	if !ok {
		return "", backend.NewConfigError("no credential configured for provider %q", provider)
	}

	result, err := e.dispatcher.Dispatch(ctx, provider, buildRequest(node, prompt, apiKey))
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// buildRequest maps node configuration onto the adapter request.
func buildRequest(node *graph.Node, prompt string, apiKey string) backend.Request {
	return backend.Request{
		Prompt:       prompt,
		SystemPrompt: node.Data.SystemPrompt,
		Model:        node.Data.Model,
		APIKey:       apiKey,
		Temperature:  node.Data.Temperature,
		MaxTokens:    node.Data.MaxTokens,
		VoiceID:      node.Data.VoiceID,
		Images:       node.Data.Images,
		Mode:         node.Data.Mode,
	}
}

// upstreamTexts collects the cached outputs of a node's predecessors in edge
// order. Predecessors without a cached output (failed or never run)
// contribute nothing.
func upstreamTexts(g *graph.Graph, nodeID string, outputs *Outputs) []string {
	var texts []string
	for _, edge := range g.Edges {
		if edge.Target != nodeID {
			continue
		}
		if text, ok := outputs.Get(edge.Source); ok {
			texts = append(texts, text)
		}
	}
	return texts
}
