package game

import (
	"horse-race/backend/internal/entity"
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// Status состояние гонки
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

// TimeUpWinner значение победителя, когда время вышло
const TimeUpWinner = "Time up! No winner."

// ParseStatus проверяет строковое значение статуса
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusWaiting, StatusRunning, StatusEnded:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// MapView неизменяемое описание текущей карты
type MapView struct {
	ID        string           `json:"id,omitempty"`
	Bounds    world.Bounds     `json:"bounds"`
	Obstacles []world.Obstacle `json:"obstacles"`
}

// CollisionCounters накопленные счетчики столкновений
type CollisionCounters struct {
	Walls     uint64 `json:"walls"`
	Horses    uint64 `json:"horses"`
	Obstacles uint64 `json:"obstacles"`
}

// Snapshot состояние симуляции после последнего тика.
// Все объекты - копии, изменять их безопасно.
type Snapshot struct {
	Status     Status            `json:"status"`
	Winner     string            `json:"winner,omitempty"`
	Horses     []*entity.Horse   `json:"horses"`
	Coin       *entity.Coin      `json:"coin,omitempty"`
	Map        MapView           `json:"map"`
	Countdown  *entity.Countdown `json:"countdown,omitempty"`
	GameTime   float64           `json:"gameTime"`
	CanvasSize float64           `json:"canvasSize"`
	StartArea  StartArea         `json:"startArea"`
	CoinSpawn  vecmath.Vector2D  `json:"coinSpawn"`
	Tick       uint64            `json:"tick"`
	Collisions CollisionCounters `json:"collisions"`
}

// Horse ищет лошадь по id
func (s Snapshot) Horse(id string) (*entity.Horse, bool) {
	for _, h := range s.Horses {
		if h.ID == id {
			return h, true
		}
	}
	return nil, false
}

// Entities все объекты снимка в виде общего интерфейса
func (s Snapshot) Entities() []entity.Entity {
	out := make([]entity.Entity, 0, len(s.Horses)+2)
	for _, h := range s.Horses {
		out = append(out, h)
	}
	if s.Coin != nil {
		out = append(out, s.Coin)
	}
	if s.Countdown != nil && s.Countdown.Active {
		out = append(out, s.Countdown)
	}
	return out
}
