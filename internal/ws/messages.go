package ws

import (
	"encoding/json"
	"time"

	"bess_simulator/internal/simulator"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeSimStart      = "sim:start"
	TypeSimPause      = "sim:pause"
	TypeSimSetSpeed   = "sim:set_speed"
	TypeSimSeek       = "sim:seek"
	TypeBatteryConfig = "battery:config"

	// Server -> Client
	TypeSimState      = "sim:state"
	TypeStepResult    = "step:result"
	TypeSummaryUpdate = "summary:update"
	TypeDataLoaded    = "data:loaded"
)

// Client -> Server messages

type SetSpeedPayload struct {
	Speed float64 `json:"speed"`
}

type SeekPayload struct {
	Timestamp string `json:"timestamp"`
}

type BatteryConfigPayload struct {
	Model        string  `json:"model"`
	CapacityKWh  float64 `json:"capacity_kwh"`
	Efficiency   float64 `json:"efficiency"`
	AmbientTempC float64 `json:"ambient_temp_c"`
}

// Server -> Client messages

type SimStatePayload struct {
	Time    string  `json:"time"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
}

type StepResultPayload struct {
	Timestamp      string  `json:"timestamp"`
	ProducedKWh    float64 `json:"produced_kwh"`
	ChargedKWh     float64 `json:"charged_kwh"`
	DemandKWh      float64 `json:"demand_kwh"`
	ReleasedKWh    float64 `json:"released_kwh"`
	SoCPercent     float64 `json:"soc_percent"`
	MinReserveKWh  float64 `json:"min_reserve_kwh"`
	LoadShedKW     float64 `json:"load_shed_kw"`
	ReserveUsedKWh float64 `json:"reserve_used_kwh"`
}

type SummaryPayload struct {
	Steps               int     `json:"steps"`
	ProducedKWh         float64 `json:"produced_kwh"`
	ChargedKWh          float64 `json:"charged_kwh"`
	ReleasedKWh         float64 `json:"released_kwh"`
	DemandKWh           float64 `json:"demand_kwh"`
	UnmetDemandKWh      float64 `json:"unmet_demand_kwh"`
	LoadShedTotalKW     float64 `json:"load_shed_total_kw"`
	ReserveUsedTotalKWh float64 `json:"reserve_used_total_kwh"`
	MeanSoCPercent      float64 `json:"mean_soc_percent"`
	FinalSoCPercent     float64 `json:"final_soc_percent"`
	PeakReleaseKWh      float64 `json:"peak_release_kwh"`
}

type ProfileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Unit string `json:"unit"`
}

type TimeRangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DataLoadedPayload struct {
	Profiles  []ProfileInfo `json:"profiles"`
	TimeRange TimeRangeInfo `json:"time_range"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SimStateFromEngine(s simulator.State) SimStatePayload {
	return SimStatePayload{
		Time:    s.Time.Format(time.RFC3339),
		Speed:   s.Speed,
		Running: s.Running,
	}
}

func StepResultFromEngine(r simulator.StepResult) StepResultPayload {
	return StepResultPayload{
		Timestamp:      r.Timestamp.Format(time.RFC3339),
		ProducedKWh:    r.ProducedKWh,
		ChargedKWh:     r.ChargedKWh,
		DemandKWh:      r.DemandKWh,
		ReleasedKWh:    r.ReleasedKWh,
		SoCPercent:     r.SoCPercent,
		MinReserveKWh:  r.MinReserveKWh,
		LoadShedKW:     r.LoadShedKW,
		ReserveUsedKWh: r.ReserveUsedKWh,
	}
}

func SummaryFromEngine(s simulator.Summary) SummaryPayload {
	return SummaryPayload{
		Steps:               s.Steps,
		ProducedKWh:         s.ProducedKWh,
		ChargedKWh:          s.ChargedKWh,
		ReleasedKWh:         s.ReleasedKWh,
		DemandKWh:           s.DemandKWh,
		UnmetDemandKWh:      s.UnmetDemandKWh,
		LoadShedTotalKW:     s.LoadShedTotalKW,
		ReserveUsedTotalKWh: s.ReserveUsedTotalKWh,
		MeanSoCPercent:      s.MeanSoCPercent,
		FinalSoCPercent:     s.FinalSoCPercent,
		PeakReleaseKWh:      s.PeakReleaseKWh,
	}
}
