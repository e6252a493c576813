package main

import (
	"flag"
	"fmt"
	"log"

	"bess_simulator/internal/bess"
	"bess_simulator/internal/config"
	"bess_simulator/internal/ingest"
	"bess_simulator/internal/model"
	"bess_simulator/internal/peakshave"
	"bess_simulator/internal/reserve"
	"bess_simulator/internal/solar"
	"bess_simulator/internal/store"
)

// cmd/simulate runs a one-shot pass over a day of profile data and prints
// per-step results, without the real-time engine or the WebSocket surface.
func main() {
	configPath := flag.String("config", "", "path to YAML configuration (defaults used when empty)")
	inputDir := flag.String("input-dir", "input", "directory containing JSON profile files")
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

	panel, err := solar.NewPanel(cfg.Solar)
	if err != nil {
		log.Fatalf("Failed to build solar panel: %v", err)
	}
	battery, err := bess.NewBattery(bess.Config{
		CapacityKWh: cfg.Battery.CapacityKWh,
		Efficiency:  cfg.Battery.Efficiency,
	})
	if err != nil {
		log.Fatalf("Failed to build battery: %v", err)
	}
	fcr, err := reserve.NewOptimizer(cfg.FCR)
	if err != nil {
		log.Fatalf("Failed to build FCR optimizer: %v", err)
	}

	simulateDay(dataStore, panel, battery, fcr)
	balanceRestoration(dataStore, cfg.MFRR)
	shavePeaks(dataStore, cfg.PeakShave)
}

// simulateDay walks the sunlight and demand profiles in lockstep: produce,
// store, then regulate a release toward demand.
func simulateDay(s *store.Store, panel *solar.Panel, battery *bess.Battery, fcr *reserve.Optimizer) {
	sunProfile, okSun := s.ByKind(model.ProfileSunlight)
	demandProfile, okDemand := s.ByKind(model.ProfileGridDemand)
	if !okSun || !okDemand {
		log.Println("Sunlight or demand profile missing, skipping day simulation")
		return
	}

	sun := s.Samples(sunProfile.ID)
	demand := s.Samples(demandProfile.ID)
	steps := len(sun)
	if len(demand) < steps {
		steps = len(demand)
	}

	var producedTotal, releasedTotal, curtailedTotal float64
	for i := 0; i < steps; i++ {
		produced := panel.GeneratePower(sun[i].Value)
		_, curtailed := battery.Store(produced)

		toRelease, err := fcr.Regulate(battery.StoredEnergy(), demand[i].Value, 50, nil, nil)
		if err != nil {
			log.Fatalf("Regulation failed at step %d: %v", i, err)
		}
		released := battery.Release(toRelease)

		producedTotal += produced
		releasedTotal += released
		curtailedTotal += curtailed

		fmt.Printf("Time step %d: Produced %.2f kW, Stored %.2f%% charge, Released %.2f kW to grid\n",
			i, produced, battery.StateOfCharge(), released)
	}

	fmt.Printf("\nDay totals: produced %.2f kWh, released %.2f kWh, curtailed %.2f kWh, final SoC %.2f%%\n\n",
		producedTotal, releasedTotal, curtailedTotal, battery.StateOfCharge())
}

// balanceRestoration runs one mFRR decision over the full load and generation
// forecast profiles, when both are present.
func balanceRestoration(s *store.Store, cfg reserve.MFRRConfig) {
	loadProfile, okLoad := s.ByKind(model.ProfileLoad)
	genProfile, okGen := s.ByKind(model.ProfileGeneration)
	if !okLoad || !okGen {
		return
	}

	balancer, err := reserve.NewBalancer(cfg)
	if err != nil {
		log.Fatalf("Failed to build mFRR balancer: %v", err)
	}

	load := s.Samples(loadProfile.ID).Values()
	gen := s.Samples(genProfile.ID).Values()
	if len(load) > len(gen) {
		load = load[:len(gen)]
	} else {
		gen = gen[:len(load)]
	}

	decision, err := balancer.Decide(load, gen)
	if err != nil {
		log.Fatalf("Balancing failed: %v", err)
	}
	fmt.Printf("Restoration: shed %.2f kW of load, used %.2f kWh of reserve, %.2f kWh remaining\n\n",
		decision.LoadShedKW, decision.ReserveUsedKWh, balancer.StorageLevel())
}

// shavePeaks runs the peak-shaving optimization over the consumption profile,
// when present.
func shavePeaks(s *store.Store, cfg peakshave.Config) {
	profile, ok := s.ByKind(model.ProfileConsumption)
	if !ok {
		return
	}

	shaper, err := peakshave.NewShaper(cfg)
	if err != nil {
		log.Fatalf("Failed to build peak shaper: %v", err)
	}

	consumption := s.Samples(profile.ID).Values()
	smoothed := shaper.Smooth(consumption)
	peaks := shaper.DetectPeaks(smoothed)
	adjusted, err := shaper.Shave(consumption)
	if err != nil {
		log.Fatalf("Peak shaving failed: %v", err)
	}

	fmt.Printf("Peak shaving: %d peaks detected\n", len(peaks))
	for _, p := range peaks {
		fmt.Printf("  step %d: %.2f kW -> %.2f kW\n", p, consumption[p], adjusted[p])
	}
}
