// Package app wires the application together: storage, registry, ledger,
// gateway and HTTP surface, all via constructor injection.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/characters"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/gateway"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/handlers"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/polls"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/registry"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/repository"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/shuffle"
)

// Config holds process configuration resolved by main
type Config struct {
	Addr    string // listen address, e.g. ":3001"
	DBPath  string // sqlite database path
	BaseURL string // public base for poll links; detected when empty
}

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
	baseURL  string
	server   *http.Server
}

// New creates and initializes a new application instance, rehydrating rooms
// and polls from storage.
func New(ctx context.Context, log logger.Logger, cfg Config) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s%s", preferredIP(), cfg.Addr)
		log.Info("no base URL configured, using detected address", "url", baseURL)
	}

	shuffler := shuffle.New()

	reg := registry.New(log, repo, shuffler, characters.Catalog())
	if err := reg.Load(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	ledger := polls.NewLedger(log, repo)
	if err := ledger.Load(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("load polls: %w", err)
	}

	hub := gateway.New(log, reg, ledger, baseURL)
	hub.Start()

	h := handlers.New(reg, ledger, hub, log, repo, baseURL)

	return &App{
		log:      log,
		handlers: h,
		repo:     repo,
		baseURL:  baseURL,
		server:   &http.Server{Addr: cfg.Addr},
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL returns the public base address poll links are built from
func (a *App) BaseURL() string {
	return a.baseURL
}

// Run starts the HTTP server and blocks until it stops
func (a *App) Run() error {
	a.server.Handler = a.Router()
	a.log.Info("server starting", "addr", a.server.Addr, "base_url", a.baseURL)
	return a.server.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully
func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Close releases app resources
func (a *App) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// preferredIP returns the best IPv4 address for LAN access, preferring
// private ranges so shared poll links work for phones on the same network.
// Falls back to localhost.
func preferredIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if isPrivate(ip) {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

// isPrivate checks the RFC 1918 ranges
func isPrivate(ip net.IP) bool {
	s := ip.String()
	if strings.HasPrefix(s, "192.168.") || strings.HasPrefix(s, "10.") {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
