package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bess_simulator/internal/config"
	"bess_simulator/internal/forecast"
	"bess_simulator/internal/ingest"
	"bess_simulator/internal/reserve"
	"bess_simulator/internal/simulator"
	"bess_simulator/internal/solar"
	"bess_simulator/internal/store"
	"bess_simulator/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration (defaults used when empty)")
	inputDir := flag.String("input-dir", "input", "directory containing JSON profile files")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	dataStore := store.New()
	n, err := ingest.LoadDir(*inputDir, dataStore)
	if err != nil {
		log.Fatalf("Failed to load profile data: %v", err)
	}
	log.Printf("Loaded %d profiles from %s", n, *inputDir)

	tr, ok := dataStore.GlobalTimeRange()
	if !ok {
		log.Fatal("No data loaded")
	}
	log.Printf("Data loaded: %s to %s", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"))

	battery, err := cfg.Battery.Build()
	if err != nil {
		log.Fatalf("Failed to build battery: %v", err)
	}
	fcr, err := reserve.NewOptimizer(cfg.FCR)
	if err != nil {
		log.Fatalf("Failed to build FCR optimizer: %v", err)
	}
	balancer, err := reserve.NewBalancer(cfg.MFRR)
	if err != nil {
		log.Fatalf("Failed to build mFRR balancer: %v", err)
	}
	panel, err := solar.NewPanel(cfg.Solar)
	if err != nil {
		log.Fatalf("Failed to build solar panel: %v", err)
	}

	// Set up WebSocket hub and simulator
	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)
	engine := simulator.New(dataStore, bridge, simulator.Options{
		Battery:    battery,
		PV:         panel,
		FCR:        fcr,
		MFRR:       balancer,
		Forecaster: forecast.NewProvider(cfg.Sim.ForecastWindow),
		StepHours:  cfg.Sim.StepHours,
		Horizon:    cfg.Sim.ForecastHorizon,
	})
	if !engine.Init() {
		log.Fatal("Failed to initialize simulation engine")
	}

	handler := ws.NewHandler(hub, engine)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", handler)

	// Serve frontend static files
	if _, err := os.Stat(*frontendDir); err == nil {
		log.Printf("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down")
		engine.Pause()
		hub.Shutdown()
		srv.Close()
	}()

	log.Printf("Starting server on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
