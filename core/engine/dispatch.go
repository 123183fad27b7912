package engine

import (
	"context"

	"github.com/pmoura/loom/core/graph"
	"github.com/pmoura/loom/providers/backend"
	"github.com/pmoura/loom/providers/backend/chat"
	"github.com/pmoura/loom/providers/backend/imagegen"
	"github.com/pmoura/loom/providers/backend/reader"
	"github.com/pmoura/loom/providers/backend/speech"
	"github.com/pmoura/loom/providers/backend/videogen"
)

// Dispatcher routes a node's request to the adapter for its provider family.
type Dispatcher interface {
	Dispatch(ctx context.Context, provider graph.Provider, request backend.Request) (*backend.Result, error)
}

// AdapterDispatcher routes each provider family to a concrete adapter. Zero
// values are not usable; construct with [NewAdapterDispatcher] or populate
// every field (tests swap in fakes per family).
type AdapterDispatcher struct {
	Chat     backend.Invoker
	ImageGen backend.Invoker
	Speech   backend.Invoker
	VideoGen backend.Invoker
	Reader   backend.Invoker
}

var _ Dispatcher = (*AdapterDispatcher)(nil)

// NewAdapterDispatcher creates a dispatcher wired to the real provider
// adapters with their default endpoints.
func NewAdapterDispatcher() *AdapterDispatcher {
	return &AdapterDispatcher{
		Chat:     chat.New(),
		ImageGen: imagegen.New(),
		Speech:   speech.New(),
		VideoGen: videogen.New(),
		Reader:   reader.New(),
	}
}

// Dispatch selects the adapter for the provider family and invokes it. The
// provider set is closed: anything outside it is a configuration error, so
// malformed graphs fail loudly instead of silently producing no output.
func (d *AdapterDispatcher) Dispatch(ctx context.Context, provider graph.Provider, request backend.Request) (*backend.Result, error) {
	switch provider {
	case graph.ProviderChat:
		return d.Chat.Invoke(ctx, request)
	case graph.ProviderImageGen:
		return d.ImageGen.Invoke(ctx, request)
	case graph.ProviderSpeech:
		return d.Speech.Invoke(ctx, request)
	case graph.ProviderVideoGen:
		return d.VideoGen.Invoke(ctx, request)
	case graph.ProviderReader:
		return d.Reader.Invoke(ctx, request)
	default:
		return nil, backend.NewConfigError("unknown provider %q", provider)
	}
}
