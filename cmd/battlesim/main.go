package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/app"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
)

var version = "dev"

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 3001), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "battlesim.db"), "SQLite database path")
	baseURL := flag.String("baseurl", envStr("CLIENT_URL", ""), "Public base URL for poll links (detected if not set)")
	logLevel := flag.String("loglevel", envStr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	httpLog := flag.Bool("httplog", false, "Log every HTTP request")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Battle Simulator - two-player draft and public team voting

Usage:
  battlesim [options]

Options:
  -port int      HTTP server port (default 3001, env PORT)
  -db string     SQLite database path (default "battlesim.db", env DATABASE_PATH)
  -baseurl str   Public base URL for poll links (env CLIENT_URL; LAN IP detected if not set)
  -loglevel str  Log level: debug, info, warn, error (default "info", env LOG_LEVEL)
  -httplog       Log every HTTP request
  -version       Show version and exit
  -help          Show this help message
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("battlesim %s\n", version)
		os.Exit(0)
	}

	log := logger.NewWithLevel(logger.ParseLevel(*logLevel))
	if *httpLog {
		log.EnableHTTPLogging()
	}

	a, err := app.New(context.Background(), log, app.Config{
		Addr:    fmt.Sprintf(":%d", *port),
		DBPath:  *dbPath,
		BaseURL: *baseURL,
	})
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run()
	}()

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctrlc:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
