package maps

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"horse-race/backend/internal/world"
)

var (
	ErrMapNotFound = errors.New("карта не найдена")
	ErrInvalidMap  = errors.New("некорректные данные карты")
)

// MapData сохраненная карта: препятствия и точки спавна.
// Точка спавна null означает значение по умолчанию.
type MapData struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Obstacles  []world.Obstacle    `json:"obstacles"`
	HorseSpawn world.OptionalPoint `json:"horseSpawn"`
	CoinSpawn  world.OptionalPoint `json:"coinSpawn"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Validate проверяет препятствия карты
func (m MapData) Validate() error {
	if m.Obstacles == nil {
		return fmt.Errorf("%w: нет списка препятствий", ErrInvalidMap)
	}
	for i, o := range m.Obstacles {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("%w: препятствие %d: %v", ErrInvalidMap, i, err)
		}
	}
	return nil
}

// Decode разбирает и проверяет карту в JSON
func Decode(data []byte) (MapData, error) {
	var m MapData
	if err := json.Unmarshal(data, &m); err != nil {
		return MapData{}, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if err := m.Validate(); err != nil {
		return MapData{}, err
	}
	return m, nil
}

// Encode сериализует карту в JSON
func Encode(m MapData) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
