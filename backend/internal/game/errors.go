package game

import "errors"

var (
	ErrMissingObstacles  = errors.New("в данных карты отсутствует список препятствий")
	ErrInvalidHorseCount = errors.New("количество лошадей должно быть положительным")
	ErrInvalidStatus     = errors.New("неизвестный статус гонки")
	ErrInvalidPosition   = errors.New("некорректная позиция")
)
