// Command loom runs a workflow graph from a JSON file.
//
// Credentials come from the environment (a .env file is loaded when present):
//
//	LOOM_CHAT_API_KEY, LOOM_IMAGEGEN_API_KEY, LOOM_SPEECH_API_KEY,
//	LOOM_VIDEOGEN_API_KEY, LOOM_READER_API_KEY
//
// Usage:
//
//	loom -graph workflow.json
//	loom -graph workflow.json -node summarize
//	loom -graph workflow.json -env prod.env -v
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pmoura/loom/core/engine"
	"github.com/pmoura/loom/core/graph"
	"github.com/pmoura/loom/internal/utils"
)

func main() {
	graphPath := flag.String("graph", "", "path to the workflow graph JSON file")
	nodeID := flag.String("node", "", "re-run a single node instead of the whole graph")
	envPath := flag.String("env", "", "path to a .env file (default: .env in the working directory)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *graphPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	loadEnv(*envPath)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*graphPath, *nodeID, logger); err != nil {
		logger.Error("run failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(graphPath string, nodeID string, logger *slog.Logger) error {
	g, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	runContext := engine.NewContext().WithObserver(engine.NewSlogObserver(logger))
	runContext.Credentials = credentialsFromEnv()

	eng := engine.New().WithLogger(logger)

	ctx := context.Background()
	if nodeID != "" {
		err = eng.RunSingleNode(ctx, g, nodeID, runContext)
	} else {
		err = eng.Run(ctx, g, runContext)
	}
	if err != nil {
		return err
	}

	printOutputs(g, runContext.Outputs)
	return nil
}

// loadEnv loads environment variables from a .env file. A missing default
// .env is fine; an explicitly requested file that cannot be read is not.
func loadEnv(path string) {
	if path == "" {
		_ = godotenv.Load() //nolint:errcheck
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Error("failed to load env file", "path", path, "error", err.Error())
		os.Exit(1)
	}
}

// loadGraph reads and validates a graph JSON file.
func loadGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading graph file: %w", err)
	}

	var g graph.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("error parsing graph file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return &g, nil
}

// credentialsFromEnv collects LOOM_<PROVIDER>_API_KEY variables for every
// provider family that has one set.
func credentialsFromEnv() map[graph.Provider]string {
	providers := []graph.Provider{
		graph.ProviderChat,
		graph.ProviderImageGen,
		graph.ProviderSpeech,
		graph.ProviderVideoGen,
		graph.ProviderReader,
	}

	credentials := make(map[graph.Provider]string, len(providers))
	for _, provider := range providers {
		envKey := "LOOM_" + strings.ToUpper(string(provider)) + "_API_KEY"
		if value, ok := os.LookupEnv(envKey); ok {
			credentials[provider] = value
		}
	}
	return credentials
}

// printOutputs writes the cached outputs to stdout in completion order,
// followed by the failure message of any errored node. Large outputs (data
// URLs) are truncated.
func printOutputs(g *graph.Graph, outputs *engine.Outputs) {
	for _, output := range outputs.All() {
		fmt.Printf("=== %s ===\n%s\n\n", output.NodeID, utils.TruncateString(output.Text, 2000))
	}

	for _, n := range g.Nodes {
		if n.Status == graph.StatusError {
			fmt.Printf("=== %s (failed) ===\n%s\n\n", n.ID, n.Err)
		}
	}
}
