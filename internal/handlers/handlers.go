package handlers

import (
	"context"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/gateway"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/polls"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/registry"
)

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// Pinger reports whether the storage backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Registry *registry.Registry
	Polls    *polls.Ledger
	Hub      *gateway.Hub
	Log      HTTPLogger
	Storage  Pinger

	baseURL string
}

// New creates a new Handlers instance with all dependencies. baseURL is the
// public address poll links and QR codes point at.
func New(reg *registry.Registry, ledger *polls.Ledger, hub *gateway.Hub, log HTTPLogger, storage Pinger, baseURL string) *Handlers {
	return &Handlers{
		Registry: reg,
		Polls:    ledger,
		Hub:      hub,
		Log:      log,
		Storage:  storage,
		baseURL:  baseURL,
	}
}
