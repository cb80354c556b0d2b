package entity

import (
	"horse-race/backend/internal/world"
)

// Kind тип объекта на арене
type Kind string

const (
	KindHorse     Kind = "horse"
	KindCoin      Kind = "coin"
	KindCountdown Kind = "countdown"
)

// Entity общий вид для лошади, монеты и обратного отсчета.
// Набор реализаций закрыт: Horse, Coin, Countdown.
type Entity interface {
	world.Body
	Kind() Kind
	sealed()
}

var (
	_ Entity = (*Horse)(nil)
	_ Entity = (*Coin)(nil)
	_ Entity = (*Countdown)(nil)
)

// overlaps проверка пересечения двух кругов: строго меньше суммы радиусов
func overlaps(a, b world.Body) bool {
	return a.Pos().Distance(b.Pos()) < a.Radius()+b.Radius()
}
