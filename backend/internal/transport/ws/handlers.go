package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse-race/backend/internal/game"
)

const commandTimeout = 5 * time.Second

// handlePing отвечает на пинг клиента
func (s *WSServer) handlePing(conn *SafeWriter, message interface{}) error {
	ping, ok := message.(*PingMessage)
	if !ok {
		return ErrInvalidMessage
	}
	return conn.WriteJSON(NewPongMessage(ping.ClientTime))
}

// handleCmd выполняет команду управления гонкой и отправляет подтверждение
func (s *WSServer) handleCmd(conn *SafeWriter, message interface{}) error {
	cmdMsg, ok := message.(*CommandMessage)
	if !ok {
		return ErrInvalidMessage
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := s.executeCommand(ctx, cmdMsg)
	if err != nil {
		s.logger.Printf("[WSServer] Команда %s отклонена: %v", cmdMsg.Cmd, err)
	} else {
		s.logger.Printf("[WSServer] Выполнена команда %s от %s", cmdMsg.Cmd, conn.RemoteAddr())
	}

	return conn.WriteJSON(NewAckMessage(cmdMsg.Cmd, cmdMsg.ClientTime, err))
}

func (s *WSServer) executeCommand(ctx context.Context, cmd *CommandMessage) error {
	switch cmd.Cmd {
	case CmdStart:
		s.race.StartCountdown()
		return nil

	case CmdRestart:
		s.race.RestartGame()
		return nil

	case CmdLoadMap:
		var data LoadMapData
		if err := decodeData(cmd.Data, &data); err != nil {
			return err
		}
		if data.ID == "" {
			return fmt.Errorf("%w: не указан id карты", ErrInvalidMessage)
		}
		_, err := s.race.LoadMap(ctx, data.ID)
		return err

	case CmdSetStatus:
		var data SetStatusData
		if err := decodeData(cmd.Data, &data); err != nil {
			return err
		}
		status, err := game.ParseStatus(data.Status)
		if err != nil {
			return err
		}
		return s.race.SetStatus(status)
	}

	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Cmd)
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: нет данных команды", ErrInvalidMessage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}
