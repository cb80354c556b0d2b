package ws

import (
	"encoding/json"
	"errors"

	"horse-race/backend/internal/game"
)

// Константы для WebSocket сообщений
const (
	// Типы сообщений
	MessageTypeSnapshot = "snapshot" // Состояние гонки
	MessageTypeEvent    = "event"    // Событие гонки
	MessageTypePing     = "ping"     // Пинг для измерения задержки
	MessageTypePong     = "pong"     // Ответ на пинг
	MessageTypeCommand  = "cmd"      // Команда от клиента
	MessageTypeAck      = "cmd_ack"  // Подтверждение команды
	MessageTypeInfo     = "info"     // Информационное сообщение
)

// Команды управления гонкой
const (
	CmdStart     = "start"
	CmdRestart   = "restart"
	CmdLoadMap   = "load_map"
	CmdSetStatus = "set_status"
)

// Статусы выполнения команды
const (
	AckStatusOK    = "ok"
	AckStatusError = "error"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrUnknownCommand = errors.New("unknown command")
)

// SnapshotMessage состояние гонки для клиентов
type SnapshotMessage struct {
	Type       string        `json:"type"`
	ServerTime int64         `json:"server_time"`
	State      game.Snapshot `json:"state"`
}

// EventMessage событие гонки
type EventMessage struct {
	Type       string     `json:"type"`
	ServerTime int64      `json:"server_time"`
	Event      game.Event `json:"event"`
}

// CommandMessage представляет команду от клиента
type CommandMessage struct {
	Type       string          `json:"type"`
	Cmd        string          `json:"cmd"`
	ClientTime int64           `json:"client_time,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// LoadMapData параметры команды load_map
type LoadMapData struct {
	ID string `json:"id"`
}

// SetStatusData параметры команды set_status
type SetStatusData struct {
	Status string `json:"status"`
}

// AckMessage представляет подтверждение команды сервером
type AckMessage struct {
	Type       string `json:"type"`
	Cmd        string `json:"cmd"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	ClientTime int64  `json:"client_time"`
	ServerTime int64  `json:"server_time"`
}

// PingMessage представляет пинг от клиента
type PingMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
}

// PongMessage представляет ответ на пинг от сервера
type PongMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
	ServerTime int64  `json:"server_time"`
}

// InfoMessage представляет информационное сообщение от сервера
type InfoMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
