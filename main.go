package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		printHelp()
		return
	}

	cmd := args[0]
	switch {
	case cmd == "serve":
		serve(cfg, args[1:])
	case isCLICommand(cmd):
		if err := runCLI(cfg, cmd, args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		printHelp()
		os.Exit(1)
	}
}

func serve(cfg Config, args []string) {
	if len(args) >= 2 && args[0] == "-port" {
		cfg.Port = args[1]
	}

	bridge := NewBridge(cfg)
	ai := newCapability(cfg, bridge)
	server := NewServer(cfg, bridge, ai)

	handler := corsMiddleware(authMiddleware(cfg.Token, server.Handler()))
	srv := &http.Server{Addr: "127.0.0.1:" + cfg.Port, Handler: handler}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("CDP bridge listening", "addr", "http://127.0.0.1:"+cfg.Port, "cdp", cfg.CDPBase)
	if ai == nil {
		slog.Info("agent/find disabled", "reason", "OPENAI_API_KEY not set")
	}
	if cfg.Token != "" {
		slog.Info("auth enabled", "scheme", "bearer")
	}

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
