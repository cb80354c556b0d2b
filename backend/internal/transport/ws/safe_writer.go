package ws

import (
	"bytes"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const writeWait = 5 * time.Second

// SafeWriter обеспечивает потокобезопасную запись в WebSocket соединение
type SafeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{
		conn: conn,
	}
}

// WriteJSON потокобезопасно записывает JSON данные в WebSocket соединение.
// Если в сообщении есть NaN или бесконечности, оно переводится в map
// и нечисловые значения заменяются на 0.
func (w *SafeWriter) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		mapData, ok := v.(map[string]interface{})
		if !ok {
			if mapData, ok = toGenericMap(v); !ok {
				return err
			}
		}
		sanitizeMapValues(mapData)
		if data, err = json.Marshal(mapData); err != nil {
			return err
		}
	}

	return w.WriteMessage(websocket.TextMessage, data)
}

// WriteMessage потокобезопасно записывает сообщение в WebSocket соединение
func (w *SafeWriter) WriteMessage(messageType int, data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(messageType, data)
}

// Close закрывает WebSocket соединение
func (w *SafeWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}

// ReadMessage читает сообщение из WebSocket соединения (небезопасно для параллельного чтения)
func (w *SafeWriter) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

// RemoteAddr адрес клиента
func (w *SafeWriter) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

// toGenericMap перекодирует структуру в map через msgpack, который допускает NaN.
// Имена полей берутся из json-тегов.
func toGenericMap(v interface{}) (map[string]interface{}, bool) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, false
	}

	var out map[string]interface{}
	dec := msgpack.NewDecoder(&buf)
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, out != nil
}

// sanitizeMapValues рекурсивно обходит map и заменяет NaN и бесконечности на 0
func sanitizeMapValues(data map[string]interface{}) {
	for k, v := range data {
		switch val := v.(type) {
		case float64:
			if !isFinite(val) {
				data[k] = 0.0
			}
		case float32:
			if !isFinite(float64(val)) {
				data[k] = float32(0.0)
			}
		case map[string]interface{}:
			sanitizeMapValues(val)
		case []interface{}:
			for i, item := range val {
				switch itemVal := item.(type) {
				case map[string]interface{}:
					sanitizeMapValues(itemVal)
				case float64:
					if !isFinite(itemVal) {
						val[i] = 0.0
					}
				case float32:
					if !isFinite(float64(itemVal)) {
						val[i] = float32(0.0)
					}
				}
			}
		}
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
