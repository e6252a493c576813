package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"bess_simulator/internal/bess"
)

// cmd/battery-compare runs a repeated charge/discharge schedule against the
// analytic and the degrading battery model at several capacities and prints
// how they diverge.

type result struct {
	capacity     float64
	simpleOut    float64
	degradedOut  float64
	finalKWh     float64
	fadePercent  float64
	cycles       int
	exhaustedAt  int
	roundTripEff float64
}

func main() {
	capsFlag := flag.String("capacities", "10,25,50,100", "comma-separated battery capacities in kWh")
	cycles := flag.Int("cycles", 1000, "number of full charge/discharge cycles")
	depth := flag.Float64("depth", 0.8, "cycle depth as a fraction of capacity (0-1)")
	tempC := flag.Float64("temp", 25, "ambient temperature in °C")
	rate := flag.Float64("rate", 1, "charge/discharge C-rate")
	efficiency := flag.Float64("efficiency", 0.95, "conversion efficiency of the analytic model")
	flag.Parse()

	capacities, err := parseCapacities(*capsFlag)
	if err != nil {
		log.Fatalf("Invalid capacities %q: %v", *capsFlag, err)
	}
	sort.Float64s(capacities)

	results := make([]result, 0, len(capacities))
	for _, capacity := range capacities {
		r, err := compare(capacity, *cycles, *depth, *tempC, *rate, *efficiency)
		if err != nil {
			log.Fatalf("Comparing %.1f kWh: %v", capacity, err)
		}
		results = append(results, r)
	}

	printTable(results, *cycles, *depth, *tempC, *rate)
}

// compare runs the same cycling schedule against both models. Each cycle
// charges depth×capacity and discharges it back out.
func compare(capacity float64, cycles int, depth, tempC, rate, efficiency float64) (result, error) {
	simple, err := bess.NewBattery(bess.Config{CapacityKWh: capacity, Efficiency: efficiency})
	if err != nil {
		return result{}, err
	}
	degrading, err := bess.NewDegradingBattery(bess.DegradingConfig{
		CapacityKWh:  capacity,
		AmbientTempC: tempC,
	})
	if err != nil {
		return result{}, err
	}

	r := result{capacity: capacity, exhaustedAt: -1}
	cycleEnergy := depth * capacity

	for i := 0; i < cycles; i++ {
		simple.Charge(cycleEnergy, rate)
		r.simpleOut += simple.Discharge(cycleEnergy, rate)

		degrading.Charge(cycleEnergy, rate)
		r.degradedOut += degrading.Discharge(cycleEnergy, rate)
		if degrading.Cycle(depth) && r.exhaustedAt < 0 {
			r.exhaustedAt = i + 1
		}
	}

	r.finalKWh = degrading.CurrentCapacity()
	r.fadePercent = (1 - r.finalKWh/degrading.NominalCapacity()) * 100
	r.cycles = degrading.CycleCount()
	r.roundTripEff = degrading.EfficiencyAt(rate) * degrading.EfficiencyAt(rate)
	return r, nil
}

func printTable(results []result, cycles int, depth, tempC, rate float64) {
	fmt.Println()
	fmt.Println("Battery Model Comparison")
	fmt.Printf("  %d cycles at %.0f%% depth, %.0f°C, C-rate %.1f\n", cycles, depth*100, tempC, rate)
	fmt.Println()

	fmt.Printf(" %8s │ %12s │ %13s │ %9s │ %7s │ %9s │ %9s\n",
		"Capacity", "Simple Out", "Degraded Out", "Final Cap", "Fade", "RT Eff", "Exhausted")
	fmt.Printf("──────────┼──────────────┼───────────────┼───────────┼─────────┼───────────┼───────────\n")

	for _, r := range results {
		exhausted := "no"
		if r.exhaustedAt >= 0 {
			exhausted = fmt.Sprintf("cycle %d", r.exhaustedAt)
		}
		fmt.Printf(" %5.1f kWh│ %9.1f kWh│ %10.1f kWh│ %5.1f kWh │ %5.1f%% │ %8.1f%% │ %9s\n",
			r.capacity,
			r.simpleOut,
			r.degradedOut,
			r.finalKWh,
			r.fadePercent,
			r.roundTripEff*100,
			exhausted,
		)
	}
	fmt.Println()
}

func parseCapacities(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	caps := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("capacity must be positive, got %v", v)
		}
		caps = append(caps, v)
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("no capacities specified")
	}
	return caps, nil
}
