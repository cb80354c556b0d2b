package game

import (
	"fmt"
	"sync"

	"horse-race/backend/internal/vecmath"
)

// StartArea круг, в котором случайно расставляются лошади при старте
type StartArea struct {
	Center vecmath.Vector2D `json:"center"`
	Radius float64          `json:"radius"`
}

// HorseConfig параметры лошадей
type HorseConfig struct {
	Count          int      // Количество лошадей по умолчанию
	Size           float64  // Радиус в долях арены
	Speed          float64  // Базовая скорость, арен в секунду
	SpeedVariation float64  // Разброс скорости: 0.2 -> от 0.8 до 1.2 базовой
	Colors         []string // Палитра
	TrailInterval  float64  // Интервал записи следа, секунды
	TrailLength    int      // Длина следа
}

// CountdownConfig параметры обратного отсчета
type CountdownConfig struct {
	Size          float64
	Initial       int
	Velocity      vecmath.Vector2D
	TimePerNumber float64
}

// RaceConfig параметры гонки
type RaceConfig struct {
	CoinSize       float64
	GameDuration   float64 // секунды до окончания по таймеру
	MaxDeltaTime   float64 // ограничение шага симуляции
	StartArea      StartArea
	CoinPosition   vecmath.Vector2D
	CellSize       float64
	ObstaclePasses int // сколько раз за тик выталкивать лошадь из препятствий
}

// Settings объединяет все параметры симуляции
type Settings struct {
	Horse     HorseConfig
	Countdown CountdownConfig
	Race      RaceConfig
}

var (
	settings      Settings
	settingsMutex sync.RWMutex
)

func init() {
	settings = DefaultSettings()
}

// DefaultSettings значения по умолчанию
func DefaultSettings() Settings {
	return Settings{
		Horse: HorseConfig{
			Count:          4,
			Size:           0.02,
			Speed:          0.2,
			SpeedVariation: 0.2,
			Colors: []string{
				"#E63946", // красный
				"#457B9D", // синий
				"#2A9D8F", // бирюзовый
				"#F4A261", // оранжевый
				"#8338EC", // фиолетовый
				"#2B9348", // зеленый
			},
			TrailInterval: 0.1,
			TrailLength:   10,
		},

		Countdown: CountdownConfig{
			Size:          0.05,
			Initial:       10,
			Velocity:      vecmath.New(0.3, 0.1),
			TimePerNumber: 1.0,
		},

		Race: RaceConfig{
			CoinSize:     0.025,
			GameDuration: 60,
			MaxDeltaTime: 0.1,
			StartArea: StartArea{
				Center: vecmath.New(0.15, 0.85),
				Radius: 0.05,
			},
			CoinPosition:   vecmath.New(0.85, 0.15),
			CellSize:       0.1,
			ObstaclePasses: 3,
		},
	}
}

// Validate проверяет согласованность настроек
func (s Settings) Validate() error {
	switch {
	case s.Horse.Count <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidHorseCount, s.Horse.Count)
	case s.Horse.Size <= 0 || s.Race.CoinSize <= 0 || s.Countdown.Size <= 0:
		return fmt.Errorf("размеры объектов должны быть положительными")
	case s.Horse.Speed < 0 || s.Horse.SpeedVariation < 0 || s.Horse.SpeedVariation >= 1:
		return fmt.Errorf("некорректная скорость лошадей: %f (разброс %f)", s.Horse.Speed, s.Horse.SpeedVariation)
	case s.Race.GameDuration <= 0 || s.Race.MaxDeltaTime <= 0:
		return fmt.Errorf("длительность гонки и шаг симуляции должны быть положительными")
	case s.Countdown.Initial < 0:
		return fmt.Errorf("отрицательное начальное значение отсчета: %d", s.Countdown.Initial)
	case s.Countdown.TimePerNumber <= 0:
		return fmt.Errorf("некорректный шаг отсчета: %f", s.Countdown.TimePerNumber)
	case s.Race.StartArea.Radius < 0:
		return fmt.Errorf("отрицательный радиус зоны старта")
	case len(s.Horse.Colors) == 0:
		return fmt.Errorf("пустая палитра лошадей")
	}
	return nil
}

// GetSettings возвращает текущие настройки
func GetSettings() Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings
}

// SetSettings устанавливает новые настройки. Уже созданные симуляции их не видят.
func SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settings = s
	return nil
}

// GetHorseConfig возвращает только параметры лошадей
func GetHorseConfig() HorseConfig {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings.Horse
}

// GetRaceConfig возвращает только параметры гонки
func GetRaceConfig() RaceConfig {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings.Race
}
