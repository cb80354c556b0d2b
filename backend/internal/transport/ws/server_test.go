package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"horse-race/backend/internal/entity"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// MockRace мок управления гонкой
type MockRace struct {
	mu         sync.Mutex
	calls      []string
	status     game.Status
	loadedMaps []string
}

func (m *MockRace) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockRace) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockRace) Snapshot() game.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return game.Snapshot{Status: m.status, Horses: []*entity.Horse{}, Tick: 7}
}

func (m *MockRace) StartCountdown() { m.record(CmdStart) }
func (m *MockRace) RestartGame()    { m.record(CmdRestart) }

func (m *MockRace) SetStatus(status game.Status) error {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.record(CmdSetStatus)
	return nil
}

func (m *MockRace) InitializeRace(int, []world.Obstacle, game.StartArea, vecmath.Vector2D) error {
	return nil
}

func (m *MockRace) LoadMap(_ context.Context, id string) (maps.MapData, error) {
	if id != "known" {
		return maps.MapData{}, maps.ErrMapNotFound
	}
	m.mu.Lock()
	m.loadedMaps = append(m.loadedMaps, id)
	m.mu.Unlock()
	m.record(CmdLoadMap)
	return maps.MapData{ID: id}, nil
}

func (m *MockRace) SetObstacles([]world.Obstacle) error { return nil }
func (m *MockRace) SetHorseSpawn(vecmath.Vector2D) error { return nil }
func (m *MockRace) SetCoinSpawn(vecmath.Vector2D) error  { return nil }
func (m *MockRace) SetCanvasSize(float64)                {}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (c *testClient) send(v interface{}) {
	c.t.Helper()
	if err := c.conn.WriteJSON(v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// read читает следующее сообщение заданного типа, пропуская остальные
func (c *testClient) read(messageType string, v interface{}) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("read %s: %v", messageType, err)
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &base); err != nil {
			c.t.Fatal(err)
		}
		if base.Type != messageType {
			continue
		}
		if err := json.Unmarshal(data, v); err != nil {
			c.t.Fatal(err)
		}
		return
	}
}

func newTestServer(t *testing.T) (*WSServer, *MockRace, *testClient) {
	t.Helper()

	race := &MockRace{status: game.StatusWaiting}
	server := NewWSServer(race, log.New(io.Discard, "", 0))

	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	client := &testClient{t: t, conn: conn}

	var info InfoMessage
	client.read(MessageTypeInfo, &info)
	var initial SnapshotMessage
	client.read(MessageTypeSnapshot, &initial)
	if initial.State.Tick != 7 {
		t.Fatalf("Expected initial state, got %+v", initial.State)
	}

	return server, race, client
}

func TestWSServer_Commands(t *testing.T) {
	_, race, client := newTestServer(t)

	tests := []struct {
		name   string
		cmd    string
		data   interface{}
		status string
	}{
		{"старт", CmdStart, nil, AckStatusOK},
		{"рестарт", CmdRestart, nil, AckStatusOK},
		{"загрузка карты", CmdLoadMap, LoadMapData{ID: "known"}, AckStatusOK},
		{"неизвестная карта", CmdLoadMap, LoadMapData{ID: "missing"}, AckStatusError},
		{"карта без id", CmdLoadMap, nil, AckStatusError},
		{"статус", CmdSetStatus, SetStatusData{Status: "ended"}, AckStatusOK},
		{"неизвестный статус", CmdSetStatus, SetStatusData{Status: "paused"}, AckStatusError},
		{"неизвестная команда", "fly", nil, AckStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewCommandMessage(tt.cmd, tt.data)
			if err != nil {
				t.Fatal(err)
			}
			client.send(msg)

			var ack AckMessage
			client.read(MessageTypeAck, &ack)
			if ack.Cmd != tt.cmd || ack.Status != tt.status {
				t.Errorf("Expected ack %s/%s, got %+v", tt.cmd, tt.status, ack)
			}
		})
	}

	want := []string{CmdStart, CmdRestart, CmdLoadMap, CmdSetStatus}
	got := race.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected calls %v, got %v", want, got)
	}
	if race.Snapshot().Status != game.StatusEnded {
		t.Errorf("Expected status to change")
	}
}

func TestWSServer_Ping(t *testing.T) {
	_, _, client := newTestServer(t)

	client.send(PingMessage{Type: MessageTypePing, ClientTime: 1234})

	var pong PongMessage
	client.read(MessageTypePong, &pong)
	if pong.ClientTime != 1234 || pong.ServerTime == 0 {
		t.Errorf("Unexpected pong: %+v", pong)
	}
}

func TestWSServer_Broadcast(t *testing.T) {
	server, _, client := newTestServer(t)

	if server.ClientCount() != 1 {
		t.Fatalf("Expected 1 client, got %d", server.ClientCount())
	}

	if err := server.BroadcastSnapshot(game.Snapshot{Status: game.StatusRunning, Tick: 99}); err != nil {
		t.Fatal(err)
	}
	var snap SnapshotMessage
	client.read(MessageTypeSnapshot, &snap)
	if snap.State.Tick != 99 || snap.State.Status != game.StatusRunning {
		t.Errorf("Unexpected snapshot: %+v", snap.State)
	}

	server.OnRaceEvent(game.Event{Type: game.EventWon, Winner: "Horse 3"})
	var event EventMessage
	client.read(MessageTypeEvent, &event)
	if event.Event.Type != game.EventWon || event.Event.Winner != "Horse 3" {
		t.Errorf("Unexpected event: %+v", event.Event)
	}

	snapshots, events := server.Stats()
	if snapshots != 1 || events != 1 {
		t.Errorf("Expected 1/1 sends, got %d/%d", snapshots, events)
	}
}

func TestWSServer_DisconnectRemovesClient(t *testing.T) {
	server, _, client := newTestServer(t)

	client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	client.conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for server.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// рассылка без клиентов не считается ошибкой
	if err := server.BroadcastSnapshot(game.Snapshot{}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
