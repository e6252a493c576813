package bess

// Storage is the battery capability consumed by the decision components.
// Either the analytic Battery or the DegradingBattery (or an external
// higher-fidelity engine) can back it.
type Storage interface {
	// Charge stores energy (kWh) at the given C-rate and returns the energy
	// actually absorbed after conversion losses and headroom clamping.
	Charge(energyKWh, rate float64) float64
	// Discharge draws energy (kWh) at the given C-rate and returns the
	// energy actually delivered.
	Discharge(energyKWh, rate float64) float64
	// StateOfCharge returns the state of charge as a percentage [0, 100].
	StateOfCharge() float64
	// CurrentCapacity returns the usable capacity (kWh), accounting for any
	// degradation the model tracks.
	CurrentCapacity() float64
}
