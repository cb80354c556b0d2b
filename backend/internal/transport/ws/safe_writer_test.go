package ws

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newEchoPair поднимает тестовый сервер и возвращает клиентское соединение
// и канал с сообщениями, полученными сервером
func newEchoPair(t *testing.T, expected int) (*websocket.Conn, <-chan []string) {
	t.Helper()

	received := make(chan []string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		var msgs []string
		for i := 0; i < expected; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msgs = append(msgs, string(msg))
		}
		received <- msgs
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	t.Cleanup(func() { wsConn.Close() })

	return wsConn, received
}

func TestSafeWriter_WriteJSON_Concurrency(t *testing.T) {
	wsConn, received := newEchoPair(t, 10)
	writer := NewSafeWriter(wsConn)

	// 10 горутин, каждая отправляет свое сообщение
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			// Задержка увеличивает вероятность параллельной записи
			time.Sleep(time.Duration(id) * time.Millisecond)

			msg := struct {
				ID  int    `json:"id"`
				Msg string `json:"msg"`
			}{
				ID:  id,
				Msg: "Test message",
			}

			if err := writer.WriteJSON(msg); err != nil {
				t.Errorf("Error writing message: %v", err)
			}
		}(i)
	}
	wg.Wait()

	select {
	case msgs := <-received:
		if len(msgs) != 10 {
			t.Fatalf("Expected 10 messages, got %d", len(msgs))
		}
		uniq := make(map[string]struct{})
		for _, msg := range msgs {
			uniq[msg] = struct{}{}
		}
		if len(uniq) != 10 {
			t.Errorf("Expected 10 unique messages, got %d", len(uniq))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for messages")
	}
}

func TestSafeWriter_SanitizesNaN(t *testing.T) {
	wsConn, received := newEchoPair(t, 1)
	writer := NewSafeWriter(wsConn)

	msg := map[string]interface{}{
		"type": "snapshot",
		"x":    math.NaN(),
		"nested": map[string]interface{}{
			"y": math.Inf(1),
		},
		"list": []interface{}{1.5, math.NaN()},
	}
	if err := writer.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case msgs := <-received:
		if len(msgs) != 1 {
			t.Fatalf("Expected 1 message, got %d", len(msgs))
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(msgs[0]), &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded["x"] != 0.0 {
			t.Errorf("Expected NaN replaced with 0, got %v", decoded["x"])
		}
		if decoded["nested"].(map[string]interface{})["y"] != 0.0 {
			t.Errorf("Expected Inf replaced with 0, got %v", decoded["nested"])
		}
		if list := decoded["list"].([]interface{}); list[0] != 1.5 || list[1] != 0.0 {
			t.Errorf("Expected sanitized list, got %v", list)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestSafeWriter_SanitizesTypedMessage(t *testing.T) {
	wsConn, received := newEchoPair(t, 1)
	writer := NewSafeWriter(wsConn)

	type horse struct {
		ID       string    `json:"id"`
		Position []float64 `json:"position"`
	}
	payload := struct {
		Type  string `json:"type"`
		Horse horse  `json:"horse"`
	}{MessageTypeSnapshot, horse{ID: "Horse 1", Position: []float64{math.NaN(), 0.5}}}

	if err := writer.WriteJSON(payload); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case msgs := <-received:
		var decoded struct {
			Type  string `json:"type"`
			Horse struct {
				ID       string    `json:"id"`
				Position []float64 `json:"position"`
			} `json:"horse"`
		}
		if err := json.Unmarshal([]byte(msgs[0]), &decoded); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if decoded.Type != MessageTypeSnapshot {
			t.Errorf("Expected type %s, got %s", MessageTypeSnapshot, decoded.Type)
		}
		if decoded.Horse.ID != "Horse 1" || len(decoded.Horse.Position) != 2 || decoded.Horse.Position[0] != 0 || decoded.Horse.Position[1] != 0.5 {
			t.Errorf("Expected sanitized horse, got %+v", decoded.Horse)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestSafeWriter_UnsupportedValue(t *testing.T) {
	wsConn, _ := newEchoPair(t, 1)
	writer := NewSafeWriter(wsConn)

	// канал не сериализуется ни в JSON, ни в msgpack
	if err := writer.WriteJSON(struct {
		C chan int `json:"c"`
	}{C: make(chan int)}); err == nil {
		t.Error("Expected error for unsupported value, got nil")
	}
}

func TestSafeWriter_Close(t *testing.T) {
	wsConn, _ := newEchoPair(t, 1)

	// Создаем SafeWriter и сразу закрываем
	writer := NewSafeWriter(wsConn)
	if err := writer.Close(); err != nil {
		t.Errorf("Error closing connection: %v", err)
	}

	// Попытка записи в закрытое соединение должна вернуть ошибку
	if err := writer.WriteJSON("test"); err == nil {
		t.Error("Expected error when writing to closed connection, got nil")
	}
}
