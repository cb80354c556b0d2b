package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"horse-race/backend/internal/game"
)

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// messageFactories конструкторы входящих и исходящих сообщений по типу
var messageFactories = map[string]func() interface{}{
	MessageTypeCommand:  func() interface{} { return &CommandMessage{} },
	MessageTypePing:     func() interface{} { return &PingMessage{} },
	MessageTypePong:     func() interface{} { return &PongMessage{} },
	MessageTypeAck:      func() interface{} { return &AckMessage{} },
	MessageTypeInfo:     func() interface{} { return &InfoMessage{} },
	MessageTypeSnapshot: func() interface{} { return &SnapshotMessage{} },
	MessageTypeEvent:    func() interface{} { return &EventMessage{} },
}

// ParseMessage разбирает сообщение в структуру его типа
func ParseMessage(data []byte) (interface{}, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	newMessage, ok := messageFactories[base.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, base.Type)
	}

	msg := newMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("error parsing %s message: %w", base.Type, err)
	}
	return msg, nil
}

// NewPongMessage создает новое сообщение-ответ на пинг
func NewPongMessage(clientTime int64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewAckMessage создает новое сообщение-подтверждение команды
func NewAckMessage(cmd string, clientTime int64, err error) *AckMessage {
	msg := &AckMessage{
		Type:       MessageTypeAck,
		Cmd:        cmd,
		Status:     AckStatusOK,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
	if err != nil {
		msg.Status = AckStatusError
		msg.Error = err.Error()
	}
	return msg
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(message string) *InfoMessage {
	return &InfoMessage{
		Type:    MessageTypeInfo,
		Message: message,
	}
}

// NewCommandMessage создает команду. data сериализуется в JSON.
func NewCommandMessage(cmd string, data interface{}) (*CommandMessage, error) {
	msg := &CommandMessage{
		Type:       MessageTypeCommand,
		Cmd:        cmd,
		ClientTime: GetCurrentServerTime(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("error encoding command data: %w", err)
		}
		msg.Data = raw
	}
	return msg, nil
}

// NewSnapshotMessage оборачивает состояние гонки
func NewSnapshotMessage(snapshot game.Snapshot) *SnapshotMessage {
	return &SnapshotMessage{
		Type:       MessageTypeSnapshot,
		ServerTime: GetCurrentServerTime(),
		State:      snapshot,
	}
}

// NewEventMessage оборачивает событие гонки
func NewEventMessage(event game.Event) *EventMessage {
	return &EventMessage{
		Type:       MessageTypeEvent,
		ServerTime: GetCurrentServerTime(),
		Event:      event,
	}
}
