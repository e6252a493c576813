package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bess_simulator/internal/bess"
	"bess_simulator/internal/model"
	"bess_simulator/internal/reserve"
	"bess_simulator/internal/simulator"
	"bess_simulator/internal/store"
)

// testEngine creates a store and initialized engine for handler tests.
func testEngine(t *testing.T) *simulator.Engine {
	t.Helper()

	s := store.New()
	s.AddProfile(model.Profile{
		ID:   "profile.demand",
		Name: "Grid Demand",
		Kind: model.ProfileGridDemand,
		Unit: "kWh",
	})

	samples := make(model.Series, 5)
	for i := range samples {
		samples[i] = model.Sample{
			Timestamp: startTime.Add(time.Duration(i) * time.Hour),
			Value:     float64(10 * (i + 1)),
		}
	}
	s.AddSamples("profile.demand", samples)

	battery, err := bess.NewBattery(bess.Config{CapacityKWh: 100, Efficiency: 0.95})
	require.NoError(t, err)
	fcr, err := reserve.NewOptimizer(reserve.FCRConfig{BaseMinReserveKWh: 10})
	require.NoError(t, err)

	bridge := NewBridge(NewHub()) // separate hub, not used for client reads
	engine := simulator.New(s, bridge, simulator.Options{
		Battery: battery,
		FCR:     fcr,
	})
	engine.Init()
	return engine
}

// dialHandler sets up a test server with the handler and returns a WS connection.
func dialHandler(t *testing.T, handler *Handler) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

// readJSON reads the next JSON message from the connection.
func readJSON(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

// sendJSON sends a JSON message on the connection.
func sendJSON(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	data, err := NewEnvelope(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestHandler_InitialMessages(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	// First message should be data:loaded
	env1 := readJSON(t, conn)
	assert.Equal(t, TypeDataLoaded, env1.Type)

	var dl DataLoadedPayload
	require.NoError(t, json.Unmarshal(env1.Payload, &dl))
	assert.NotEmpty(t, dl.Profiles)
	assert.NotEmpty(t, dl.TimeRange.Start)
	assert.NotEmpty(t, dl.TimeRange.End)

	// Second message should be sim:state
	env2 := readJSON(t, conn)
	assert.Equal(t, TypeSimState, env2.Type)

	var ss SimStatePayload
	require.NoError(t, json.Unmarshal(env2.Payload, &ss))
	assert.False(t, ss.Running)
	assert.Equal(t, 3600.0, ss.Speed)
}

func TestHandler_StartPause(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	// Drain initial messages
	readJSON(t, conn) // data:loaded
	readJSON(t, conn) // sim:state

	// Send start
	sendJSON(t, conn, TypeSimStart, nil)

	// Wait briefly for the engine to process
	time.Sleep(50 * time.Millisecond)

	// Send pause
	sendJSON(t, conn, TypeSimPause, nil)
	time.Sleep(50 * time.Millisecond)

	state := engine.State()
	assert.False(t, state.Running)
}

func TestHandler_SetSpeed(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	// Drain initial messages
	readJSON(t, conn)
	readJSON(t, conn)

	sendJSON(t, conn, TypeSimSetSpeed, SetSpeedPayload{Speed: 7200})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 7200.0, engine.State().Speed)
}

func TestHandler_Seek(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn)
	readJSON(t, conn)

	target := time.Date(2024, 11, 21, 14, 0, 0, 0, time.UTC)
	sendJSON(t, conn, TypeSimSeek, SeekPayload{Timestamp: target.Format(time.RFC3339)})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, target, engine.State().Time)
}

func TestHandler_BatteryConfig(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn)
	readJSON(t, conn)

	// Move away from the start, then reconfigure; the handler resets the
	// simulation so the new battery applies from the beginning.
	target := startTime.Add(2 * time.Hour)
	sendJSON(t, conn, TypeSimSeek, SeekPayload{Timestamp: target.Format(time.RFC3339)})
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, target, engine.State().Time)

	sendJSON(t, conn, TypeBatteryConfig, BatteryConfigPayload{
		Model:        "degrading",
		CapacityKWh:  50,
		AmbientTempC: 30,
	})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, engine.TimeRange().Start, engine.State().Time)
}

func TestHandler_InvalidBatteryConfig(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn)
	readJSON(t, conn)

	origTime := engine.State().Time

	// Zero capacity fails validation; the engine must be left untouched.
	sendJSON(t, conn, TypeBatteryConfig, BatteryConfigPayload{Model: "simple"})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, origTime, engine.State().Time)
}

func TestHandler_InvalidMessage(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn)
	readJSON(t, conn)

	// Send invalid JSON — should not crash
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	time.Sleep(50 * time.Millisecond)

	// Connection should still be alive; engine state unchanged
	assert.False(t, engine.State().Running)
}

func TestHandler_InvalidSeekTimestamp(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn)
	readJSON(t, conn)

	origTime := engine.State().Time

	sendJSON(t, conn, TypeSimSeek, SeekPayload{Timestamp: "not-a-timestamp"})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, origTime, engine.State().Time)
}

func TestHandler_DataLoadedPayloadContent(t *testing.T) {
	engine := testEngine(t)
	handler := NewHandler(NewHub(), engine)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Read data:loaded
	env := readJSON(t, conn)
	require.Equal(t, TypeDataLoaded, env.Type)

	var dl DataLoadedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &dl))

	found := false
	for _, p := range dl.Profiles {
		if p.ID == "profile.demand" {
			assert.Equal(t, "Grid Demand", p.Name)
			assert.Equal(t, "grid_demand", p.Kind)
			assert.Equal(t, "kWh", p.Unit)
			found = true
		}
	}
	assert.True(t, found, "demand profile should be in data:loaded payload")
}
