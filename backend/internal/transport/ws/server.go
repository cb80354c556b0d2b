package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"horse-race/backend/internal/core/port/in/racecontrol"
	"horse-race/backend/internal/game"
)

const maxMessageSize = 64 * 1024

// MessageHandler - тип функции обработчика сообщений
type MessageHandler func(conn *SafeWriter, message interface{}) error

// WSServer рассылает состояние гонки клиентам и принимает от них команды
type WSServer struct {
	upgrader websocket.Upgrader
	race     racecontrol.RaceControlPort
	logger   *log.Logger
	handlers map[string]MessageHandler

	clients   map[*SafeWriter]struct{}
	clientsMu sync.RWMutex

	snapshotsSent atomic.Uint64
	eventsSent    atomic.Uint64
}

var (
	_ game.SnapshotBroadcaster = (*WSServer)(nil)
	_ game.EventListener       = (*WSServer)(nil)
)

// NewWSServer создает новый экземпляр WebSocket сервера
func NewWSServer(race racecontrol.RaceControlPort, logger *log.Logger) *WSServer {
	if logger == nil {
		logger = log.Default()
	}

	server := &WSServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		race:     race,
		logger:   logger,
		handlers: make(map[string]MessageHandler),
		clients:  make(map[*SafeWriter]struct{}),
	}

	// Регистрируем стандартные обработчики
	server.RegisterHandler(MessageTypePing, server.handlePing)
	server.RegisterHandler(MessageTypeCommand, server.handleCmd)

	return server
}

// RegisterHandler регистрирует обработчик для конкретного типа сообщений
func (s *WSServer) RegisterHandler(messageType string, handler MessageHandler) {
	s.handlers[messageType] = handler
}

// ServeHTTP позволяет использовать сервер как http.Handler
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.HandleWS(w, r)
}

// HandleWS обрабатывает входящие WebSocket соединения
func (s *WSServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[WSServer] Ошибка установки соединения: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	safeConn := NewSafeWriter(conn)
	s.addClient(safeConn)
	defer s.removeClient(safeConn)

	s.logger.Printf("[WSServer] Новое соединение %s", safeConn.RemoteAddr())

	if err := safeConn.WriteJSON(NewInfoMessage("Подключено к серверу гонок")); err != nil {
		s.logger.Printf("[WSServer] Ошибка отправки приветствия: %v", err)
		return
	}
	if err := safeConn.WriteJSON(NewSnapshotMessage(s.race.Snapshot())); err != nil {
		s.logger.Printf("[WSServer] Ошибка отправки начального состояния: %v", err)
		return
	}

	// Основной цикл обработки сообщений
	for {
		_, data, err := safeConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("[WSServer] Ошибка соединения %s: %v", safeConn.RemoteAddr(), err)
			}
			break
		}

		message, err := ParseMessage(data)
		if err != nil {
			s.logger.Printf("[WSServer] Ошибка разбора сообщения: %v", err)
			continue
		}

		messageType := messageTypeOf(message)
		handler, ok := s.handlers[messageType]
		if !ok {
			s.logger.Printf("[WSServer] Нет обработчика для сообщения %s", messageType)
			continue
		}
		if err := handler(safeConn, message); err != nil {
			s.logger.Printf("[WSServer] Ошибка обработки сообщения %s: %v", messageType, err)
		}
	}

	s.logger.Printf("[WSServer] Соединение закрыто: %s", safeConn.RemoteAddr())
}

func messageTypeOf(message interface{}) string {
	switch msg := message.(type) {
	case *CommandMessage:
		return msg.Type
	case *PingMessage:
		return msg.Type
	case *PongMessage:
		return msg.Type
	case *AckMessage:
		return msg.Type
	case *InfoMessage:
		return msg.Type
	case *SnapshotMessage:
		return msg.Type
	case *EventMessage:
		return msg.Type
	}
	return ""
}

func (s *WSServer) addClient(conn *SafeWriter) {
	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()
}

func (s *WSServer) removeClient(conn *SafeWriter) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	s.clientsMu.Unlock()

	if ok {
		conn.Close()
	}
}

// ClientCount количество подключенных клиентов
func (s *WSServer) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// BroadcastSnapshot рассылает состояние гонки всем клиентам
func (s *WSServer) BroadcastSnapshot(snapshot game.Snapshot) error {
	if err := s.broadcast(NewSnapshotMessage(snapshot)); err != nil {
		return err
	}
	s.snapshotsSent.Add(1)
	return nil
}

// OnRaceEvent рассылает событие гонки всем клиентам
func (s *WSServer) OnRaceEvent(event game.Event) {
	if err := s.broadcast(NewEventMessage(event)); err != nil {
		s.logger.Printf("[WSServer] Ошибка рассылки события %s: %v", event.Type, err)
		return
	}
	s.eventsSent.Add(1)
}

// Stats количество разосланных снимков и событий
func (s *WSServer) Stats() (snapshots, events uint64) {
	return s.snapshotsSent.Load(), s.eventsSent.Load()
}

// broadcast сериализует сообщение один раз и отправляет всем клиентам.
// Клиенты, запись которым не удалась, отключаются.
func (s *WSServer) broadcast(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	s.clientsMu.RLock()
	clients := make([]*SafeWriter, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clientsMu.RUnlock()

	var failed []*SafeWriter
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Printf("[WSServer] Ошибка отправки клиенту %s: %v", client.RemoteAddr(), err)
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		s.removeClient(client)
	}
	if len(failed) > 0 && len(failed) == len(clients) {
		return errors.New("не удалось отправить сообщение ни одному клиенту")
	}
	return nil
}

// CloseAll отключает всех клиентов
func (s *WSServer) CloseAll() {
	s.clientsMu.Lock()
	clients := s.clients
	s.clients = make(map[*SafeWriter]struct{})
	s.clientsMu.Unlock()

	for client := range clients {
		client.Close()
	}
	s.logger.Printf("[WSServer] Отключено клиентов: %d", len(clients))
}
