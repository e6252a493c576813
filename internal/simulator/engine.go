package simulator

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"bess_simulator/internal/forecast"
	"bess_simulator/internal/model"
	"bess_simulator/internal/reserve"
	"bess_simulator/internal/store"
)

// Battery is the storage capability the engine drives, plus the capacity
// introspection needed to convert state of charge into stored energy.
type Battery interface {
	Charge(energyKWh, rate float64) float64
	Discharge(energyKWh, rate float64) float64
	StateOfCharge() float64
	CurrentCapacity() float64
}

// PVProducer supplies available PV power (kW) for a point in time.
type PVProducer interface {
	PowerAt(t time.Time) float64
}

// State represents the current simulation state.
type State struct {
	Time    time.Time `json:"time"`
	Speed   float64   `json:"speed"`
	Running bool      `json:"running"`
}

// StepResult is emitted for every simulated time step.
type StepResult struct {
	Timestamp      time.Time `json:"timestamp"`
	ProducedKWh    float64   `json:"produced_kwh"`
	ChargedKWh     float64   `json:"charged_kwh"`
	DemandKWh      float64   `json:"demand_kwh"`
	ReleasedKWh    float64   `json:"released_kwh"`
	SoCPercent     float64   `json:"soc_percent"`
	MinReserveKWh  float64   `json:"min_reserve_kwh"`
	LoadShedKW     float64   `json:"load_shed_kw"`
	ReserveUsedKWh float64   `json:"reserve_used_kwh"`
}

// Summary holds running totals over the simulated range.
type Summary struct {
	Steps int `json:"steps"`

	ProducedKWh    float64 `json:"produced_kwh"`
	ChargedKWh     float64 `json:"charged_kwh"`
	ReleasedKWh    float64 `json:"released_kwh"`
	DemandKWh      float64 `json:"demand_kwh"`
	UnmetDemandKWh float64 `json:"unmet_demand_kwh"`

	LoadShedTotalKW     float64 `json:"load_shed_total_kw"`
	ReserveUsedTotalKWh float64 `json:"reserve_used_total_kwh"`

	MeanSoCPercent  float64 `json:"mean_soc_percent"`
	FinalSoCPercent float64 `json:"final_soc_percent"`
	PeakReleaseKWh  float64 `json:"peak_release_kwh"`
}

// Callback receives simulation events.
type Callback interface {
	OnState(state State)
	OnStep(result StepResult)
	OnSummary(summary Summary)
}

// Engine drives the simulation: for each time step it feeds profile inputs
// through the FCR optimizer (and, when load/generation forecasts are
// available, the mFRR balancer), mutates the battery, and reports results.
// All decisions within a step run strictly in sequence; the engine is the
// battery's only owner.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	callback Callback

	battery    Battery
	pv         PVProducer
	fcr        *reserve.Optimizer
	mfrr       *reserve.Balancer
	forecaster *forecast.Provider

	stepHours float64
	horizon   int

	running   bool
	speed     float64
	simTime   time.Time
	timeRange model.TimeRange

	// Trailing histories feeding the forecaster.
	demandHistory []float64
	pvHistory     []float64

	// Accumulators
	steps          int
	producedKWh    float64
	chargedKWh     float64
	releasedKWh    float64
	demandKWh      float64
	unmetKWh       float64
	loadShedKW     float64
	reserveUsedKWh float64
	socHistory     []float64
	peakReleaseKWh float64

	stopCh chan struct{}
}

// Options configures an Engine. Battery is required; everything else has a
// usable default (PV and MFRR absent means those paths are skipped).
type Options struct {
	Battery    Battery
	PV         PVProducer
	FCR        *reserve.Optimizer
	MFRR       *reserve.Balancer
	Forecaster *forecast.Provider
	StepHours  float64
	Horizon    int
}

func New(s *store.Store, cb Callback, opts Options) *Engine {
	if opts.StepHours <= 0 {
		opts.StepHours = 1
	}
	if opts.Horizon <= 0 {
		opts.Horizon = 4
	}
	if opts.Forecaster == nil {
		opts.Forecaster = forecast.NewProvider(opts.Horizon)
	}
	if opts.FCR == nil {
		// Zero base reserve: regulation releases freely.
		opts.FCR, _ = reserve.NewOptimizer(reserve.FCRConfig{})
	}
	return &Engine{
		store:      s,
		callback:   cb,
		battery:    opts.Battery,
		pv:         opts.PV,
		fcr:        opts.FCR,
		mfrr:       opts.MFRR,
		forecaster: opts.Forecaster,
		stepHours:  opts.StepHours,
		horizon:    opts.Horizon,
		speed:      3600,
	}
}

// Init sets up the engine with the store's time range.
func (e *Engine) Init() bool {
	tr, ok := e.store.GlobalTimeRange()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeRange = tr
	e.simTime = tr.Start
	return true
}

// State returns the current simulation state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Time: e.simTime, Speed: e.speed, Running: e.running}
}

// TimeRange returns the data time range.
func (e *Engine) TimeRange() model.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeRange
}

// Profiles returns all loaded profiles.
func (e *Engine) Profiles() []model.Profile {
	return e.store.Profiles()
}

// Start begins the simulation loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.broadcastState()
	go e.loop()
}

// Pause stops the simulation loop.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.broadcastState()
}

// SetBattery swaps the battery backing the simulation. The caller is
// expected to Seek afterwards so results reflect the new model from the
// start of the range.
func (e *Engine) SetBattery(b Battery) {
	e.mu.Lock()
	e.battery = b
	e.mu.Unlock()
}

// SetSpeed sets the simulation speed multiplier.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0.1 {
		speed = 0.1
	}
	if speed > 604800 {
		speed = 604800
	}

	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()

	e.broadcastState()
}

// Seek jumps to a specific time and resets accumulators.
func (e *Engine) Seek(t time.Time) {
	e.mu.Lock()
	if t.Before(e.timeRange.Start) {
		t = e.timeRange.Start
	}
	if t.After(e.timeRange.End) {
		t = e.timeRange.End
	}
	e.simTime = t
	e.resetAccumulators()
	e.mu.Unlock()

	e.broadcastState()
	e.broadcastSummary()
}

// resetAccumulators zeroes all counters. Must be called with mu held.
func (e *Engine) resetAccumulators() {
	e.steps = 0
	e.producedKWh = 0
	e.chargedKWh = 0
	e.releasedKWh = 0
	e.demandKWh = 0
	e.unmetKWh = 0
	e.loadShedKW = 0
	e.reserveUsedKWh = 0
	e.socHistory = nil
	e.peakReleaseKWh = 0
	e.demandHistory = nil
	e.pvHistory = nil
}

const tickInterval = 100 * time.Millisecond

func (e *Engine) loop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.tick() {
				return
			}
		}
	}
}

// tick advances one frame. Returns true if simulation reached the end.
func (e *Engine) tick() bool {
	e.mu.Lock()
	simDelta := time.Duration(float64(tickInterval) * e.speed)
	prevTime := e.simTime
	e.simTime = e.simTime.Add(simDelta)

	ended := false
	if !e.simTime.Before(e.timeRange.End) {
		e.simTime = e.timeRange.End
		ended = true
	}
	currentTime := e.simTime
	endTime := e.timeRange.End
	e.mu.Unlock()

	e.runSteps(prevTime, currentTime, endTime)
	e.broadcastState()
	e.broadcastSummary()

	if ended {
		e.mu.Lock()
		if e.running {
			e.running = false
			close(e.stopCh)
		}
		e.mu.Unlock()
		e.broadcastState()
		return true
	}
	return false
}

// Step advances the simulation by the given duration and runs the steps it
// covers. Useful for deterministic testing; does not require Start().
func (e *Engine) Step(delta time.Duration) {
	e.mu.Lock()
	prevTime := e.simTime
	e.simTime = e.simTime.Add(delta)
	if !e.simTime.Before(e.timeRange.End) {
		e.simTime = e.timeRange.End
	}
	currentTime := e.simTime
	endTime := e.timeRange.End
	e.mu.Unlock()

	e.runSteps(prevTime, currentTime, endTime)
	e.broadcastState()
	e.broadcastSummary()
}

// RunToEnd synchronously simulates the remaining range.
func (e *Engine) RunToEnd() {
	e.Step(e.TimeRange().End.Sub(e.State().Time) + time.Nanosecond)
}

// runSteps executes every demand-profile step in [prevTime, currentTime).
func (e *Engine) runSteps(prevTime, currentTime, endTime time.Time) {
	demandProfile, ok := e.store.ByKind(model.ProfileGridDemand)
	if !ok {
		return
	}

	// SamplesInRange is [start, end), so include the final sample when at
	// the end of data.
	queryEnd := currentTime
	if !currentTime.Before(endTime) {
		queryEnd = currentTime.Add(time.Nanosecond)
	}

	for _, sample := range e.store.SamplesInRange(demandProfile.ID, prevTime, queryEnd) {
		result := e.runStep(sample.Timestamp, sample.Value)
		e.callback.OnStep(result)
	}
}

// runStep executes one decision step: PV production into the battery, an FCR
// regulation decision out of it, and an mFRR balancing decision when load
// and generation forecast profiles are loaded.
func (e *Engine) runStep(t time.Time, demandKWh float64) StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := StepResult{Timestamp: t, DemandKWh: demandKWh}

	// Production: available PV power over the step, pushed into storage.
	if e.pv != nil {
		result.ProducedKWh = e.pv.PowerAt(t) * e.stepHours
	}
	if result.ProducedKWh > 0 {
		result.ChargedKWh = e.battery.Charge(result.ProducedKWh, e.rate(result.ProducedKWh))
	}

	// Regulation: forecast-aware reserve decision, then the actual release.
	gridHz := e.frequencyAt(t)
	demandFC := e.forecaster.Forecast(e.demandHistory, e.horizon)
	renewableFC := e.forecaster.Forecast(e.pvHistory, e.horizon)

	stored := e.battery.StateOfCharge() / 100 * e.battery.CurrentCapacity()
	toRelease, err := e.fcr.Regulate(stored, demandKWh, gridHz, demandFC, renewableFC)
	if err == nil && toRelease > 0 {
		result.ReleasedKWh = e.battery.Discharge(toRelease, e.rate(toRelease))
	}
	result.MinReserveKWh = e.fcr.CurrentMinReserve()
	result.SoCPercent = e.battery.StateOfCharge()

	// Restoration: balance forecasted shortfall with shedding and reserve.
	if e.mfrr != nil {
		if decision, ok := e.balanceAt(t); ok {
			result.LoadShedKW = decision.LoadShedKW
			result.ReserveUsedKWh = decision.ReserveUsedKWh
		}
	}

	e.demandHistory = append(e.demandHistory, demandKWh)
	e.pvHistory = append(e.pvHistory, result.ProducedKWh)

	e.steps++
	e.producedKWh += result.ProducedKWh
	e.chargedKWh += result.ChargedKWh
	e.releasedKWh += result.ReleasedKWh
	e.demandKWh += demandKWh
	if demandKWh > result.ReleasedKWh {
		e.unmetKWh += demandKWh - result.ReleasedKWh
	}
	e.loadShedKW += result.LoadShedKW
	e.reserveUsedKWh += result.ReserveUsedKWh
	e.socHistory = append(e.socHistory, result.SoCPercent)
	if result.ReleasedKWh > e.peakReleaseKWh {
		e.peakReleaseKWh = result.ReleasedKWh
	}

	return result
}

// rate converts step energy into an approximate C-rate for the battery.
func (e *Engine) rate(energyKWh float64) float64 {
	capacity := e.battery.CurrentCapacity()
	if capacity <= 0 || e.stepHours <= 0 {
		return 1
	}
	return energyKWh / e.stepHours / capacity
}

// frequencyAt reads the grid frequency profile, defaulting to nominal 50 Hz.
func (e *Engine) frequencyAt(t time.Time) float64 {
	p, ok := e.store.ByKind(model.ProfileFrequency)
	if !ok {
		return 50.0
	}
	s, ok := e.store.SampleAt(p.ID, t)
	if !ok {
		return 50.0
	}
	return s.Value
}

// balanceAt runs the mFRR decision over the next horizon of load and
// generation forecast samples.
func (e *Engine) balanceAt(t time.Time) (reserve.ShedDecision, bool) {
	loadProfile, okLoad := e.store.ByKind(model.ProfileLoad)
	genProfile, okGen := e.store.ByKind(model.ProfileGeneration)
	if !okLoad || !okGen {
		return reserve.ShedDecision{}, false
	}

	end := t.Add(time.Duration(float64(e.horizon) * e.stepHours * float64(time.Hour)))
	load := e.store.SamplesInRange(loadProfile.ID, t, end).Values()
	gen := e.store.SamplesInRange(genProfile.ID, t, end).Values()
	if len(load) == 0 || len(load) != len(gen) {
		return reserve.ShedDecision{}, false
	}

	decision, err := e.mfrr.Decide(load, gen)
	if err != nil {
		return reserve.ShedDecision{}, false
	}
	return decision, true
}

func (e *Engine) broadcastState() {
	e.mu.Lock()
	s := State{Time: e.simTime, Speed: e.speed, Running: e.running}
	e.mu.Unlock()
	e.callback.OnState(s)
}

func (e *Engine) broadcastSummary() {
	e.mu.Lock()
	s := Summary{
		Steps:               e.steps,
		ProducedKWh:         e.producedKWh,
		ChargedKWh:          e.chargedKWh,
		ReleasedKWh:         e.releasedKWh,
		DemandKWh:           e.demandKWh,
		UnmetDemandKWh:      e.unmetKWh,
		LoadShedTotalKW:     e.loadShedKW,
		ReserveUsedTotalKWh: e.reserveUsedKWh,
		PeakReleaseKWh:      e.peakReleaseKWh,
		FinalSoCPercent:     e.battery.StateOfCharge(),
	}
	if len(e.socHistory) > 0 {
		s.MeanSoCPercent = stat.Mean(e.socHistory, nil)
	}
	e.mu.Unlock()
	e.callback.OnSummary(s)
}
