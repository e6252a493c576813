package ws

import (
	"log"

	"bess_simulator/internal/simulator"
)

// Bridge implements simulator.Callback and broadcasts events to the WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnState(s simulator.State) {
	msg, err := NewEnvelope(TypeSimState, SimStateFromEngine(s))
	if err != nil {
		log.Printf("Error marshaling sim state: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnStep(r simulator.StepResult) {
	msg, err := NewEnvelope(TypeStepResult, StepResultFromEngine(r))
	if err != nil {
		log.Printf("Error marshaling step result: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnSummary(s simulator.Summary) {
	msg, err := NewEnvelope(TypeSummaryUpdate, SummaryFromEngine(s))
	if err != nil {
		log.Printf("Error marshaling summary: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
