package game

import "time"

// EventType тип события гонки
type EventType string

const (
	EventCountdown EventType = "countdown"  // значение отсчета изменилось
	EventStarted   EventType = "started"    // отсчет закончился, гонка идет
	EventWon       EventType = "won"        // лошадь взяла монету
	EventTimeUp    EventType = "time_up"    // время вышло без победителя
	EventReset     EventType = "reset"      // набор объектов пересоздан
	EventMapLoaded EventType = "map_loaded" // загружена новая карта
)

// Event событие гонки. Доставляется слушателям после освобождения мьютекса симуляции.
type Event struct {
	Type      EventType `json:"type"`
	Status    Status    `json:"status"`
	Winner    string    `json:"winner,omitempty"`
	Countdown int       `json:"countdown,omitempty"`
	Elapsed   float64   `json:"elapsed"`
	MapID     string    `json:"map_id,omitempty"`
	Horses    []string  `json:"horses,omitempty"`
	Time      time.Time `json:"time"`
}

// Finished true для событий, завершающих гонку
func (e Event) Finished() bool {
	return e.Type == EventWon || e.Type == EventTimeUp
}

// EventListener получатель событий гонки
type EventListener interface {
	OnRaceEvent(event Event)
}

// EventListenerFunc адаптер функции к EventListener
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnRaceEvent(event Event) {
	f(event)
}
