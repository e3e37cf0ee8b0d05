package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmgate/config"
	"farmgate/gateway"
	"farmgate/state"
	"farmgate/www"
)

func main() {
	configPath := flag.String("config", "farmgate.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	daemonURL := flag.String("daemon", "", "daemon WebSocket URL (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *daemonURL != "" {
		cfg.DaemonURL = *daemonURL
	}

	// Wire the gateway: store <- actions, client -> daemon, router in between.
	store := state.New()
	client := gateway.NewClient(store)
	supervisor := gateway.NewSupervisor(client, store, cfg.PingInterval)
	router := gateway.NewRouter(client, store, store, supervisor)
	boot := gateway.NewBootstrapper(client, cfg.LocalTest)
	client.Bind(router, boot.Run, supervisor.StopAll)

	// Initial connect. Failure is non-fatal; the diagnostics API can redial.
	if err := client.Connect(cfg.DaemonURL); err != nil {
		log.Printf("initial connect: %v (use POST /api/connect to retry)", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: www.NewRouter(client, store, cfg.DaemonURL),
	}
	go func() {
		log.Printf("diagnostics API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	supervisor.StopAll()
	client.Disconnect()
}
