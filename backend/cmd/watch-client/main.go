package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"horse-race/backend/internal/transport/ws"
)

func main() {
	addr := flag.String("url", "ws://localhost:8080/ws", "адрес WebSocket сервера")
	limit := flag.Int("n", 0, "сколько сообщений прочитать, 0 - без ограничения")
	every := flag.Int("every", 20, "печатать каждый N-й снимок")
	cmd := flag.String("cmd", "", "команда после подключения: start, restart, load_map, set_status")
	arg := flag.String("arg", "", "аргумент команды: id карты или статус")
	flag.Parse()

	// Подключаемся к серверу
	u, err := url.Parse(*addr)
	if err != nil {
		log.Fatalf("Неверный URL: %v", err)
	}

	log.Printf("Подключение к %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Ошибка подключения: %v", err)
	}
	defer conn.Close()

	log.Printf("Успешно подключен")

	if *cmd != "" {
		if err := sendCommand(conn, *cmd, *arg); err != nil {
			log.Fatalf("Ошибка отправки команды: %v", err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	snapshots := 0
	for i := 0; *limit == 0 || i < *limit; i++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Соединение закрыто: %v", err)
			break
		}

		msg, err := ws.ParseMessage(data)
		if err != nil {
			log.Printf("Ошибка разбора сообщения: %v", err)
			continue
		}

		switch m := msg.(type) {
		case *ws.InfoMessage:
			log.Printf("INFO: %s", m.Message)

		case *ws.SnapshotMessage:
			snapshots++
			if *every > 1 && (snapshots-1)%*every != 0 {
				continue
			}
			state := m.State
			log.Printf("SNAPSHOT: статус %s, время %.2f, тик %d, лошадей %d",
				state.Status, state.GameTime, state.Tick, len(state.Horses))
			if state.Countdown != nil && state.Countdown.Active {
				log.Printf("  отсчет: %d", state.Countdown.Value)
			}

		case *ws.EventMessage:
			e := m.Event
			switch {
			case e.Winner != "":
				log.Printf("EVENT %s: победитель %s за %.2f с", e.Type, e.Winner, e.Elapsed)
			case e.MapID != "":
				log.Printf("EVENT %s: карта %s", e.Type, e.MapID)
			default:
				log.Printf("EVENT %s: статус %s, отсчет %d", e.Type, e.Status, e.Countdown)
			}

		case *ws.AckMessage:
			if m.Status == ws.AckStatusOK {
				log.Printf("ACK %s: ok", m.Cmd)
			} else {
				log.Printf("ACK %s: %s", m.Cmd, m.Error)
			}

		case *ws.PongMessage:
			log.Printf("PONG: задержка %d мс", ws.GetCurrentServerTime()-m.ClientTime)

		default:
			log.Printf("Сообщение %T", m)
		}
	}

	log.Printf("Получено снимков: %d", snapshots)
}

func sendCommand(conn *websocket.Conn, cmd, arg string) error {
	var data interface{}
	switch cmd {
	case ws.CmdLoadMap:
		data = ws.LoadMapData{ID: arg}
	case ws.CmdSetStatus:
		data = ws.SetStatusData{Status: arg}
	}

	msg, err := ws.NewCommandMessage(cmd, data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
