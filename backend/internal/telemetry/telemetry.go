package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"horse-race/backend/internal/entity"
	"horse-race/backend/internal/vecmath"
)

// Типы записей
const (
	KindState     = "state"
	KindWall      = "wall"
	KindHorse     = "horse"
	KindObstacle  = "obstacle"
	defaultSource = "server"
)

// TelemetryData запись телеметрии одной лошади или столкновения
type TelemetryData struct {
	Timestamp int64            `json:"timestamp"`           // Время в миллисекундах
	Tick      uint64           `json:"tick"`                // Номер тика симуляции
	ObjectID  string           `json:"object_id"`           // ID лошади, пусто для сводных счетчиков
	Kind      string           `json:"kind"`                // state, wall, horse, obstacle
	Position  vecmath.Vector2D `json:"position"`            // Позиция
	Velocity  vecmath.Vector2D `json:"velocity"`            // Скорость
	Radius    float64          `json:"radius"`              // Радиус
	Speed     float64          `json:"speed"`               // Модуль скорости
	Count     uint64           `json:"count,omitempty"`     // Число столкновений за интервал
	Source    string           `json:"source"`              // Источник данных
	GameTime  float64          `json:"game_time,omitempty"` // Время гонки
}

// TelemetryManager управляет сбором и выводом телеметрии
type TelemetryManager struct {
	enabled    bool
	data       []TelemetryData
	mutex      sync.RWMutex
	maxEntries int
	logger     *log.Logger

	// Счетчики для статистики
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(logger *log.Logger) *TelemetryManager {
	if logger == nil {
		logger = log.Default()
	}
	return &TelemetryManager{
		enabled:       true,
		data:          make([]TelemetryData, 0),
		maxEntries:    200, // Храним последние 200 записей
		logger:        logger,
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 10 * time.Second,
	}
}

// SetPrintInterval задает период вывода сводки
func (tm *TelemetryManager) SetPrintInterval(interval time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.printInterval = interval
}

// LogHorseState записывает состояние лошади
func (tm *TelemetryManager) LogHorseState(tick uint64, gameTime float64, horse *entity.Horse) {
	if horse == nil {
		return
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	tm.appendLocked(TelemetryData{
		Timestamp: time.Now().UnixMilli(),
		Tick:      tick,
		ObjectID:  horse.ID,
		Kind:      KindState,
		Position:  horse.Position,
		Velocity:  horse.Velocity,
		Radius:    horse.Size,
		Speed:     horse.Velocity.Magnitude(),
		Source:    defaultSource,
		GameTime:  gameTime,
	})
	tm.counters[KindState]++
}

// LogCollisions записывает число столкновений данного типа за интервал
func (tm *TelemetryManager) LogCollisions(tick uint64, kind string, count uint64) {
	if count == 0 {
		return
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	tm.appendLocked(TelemetryData{
		Timestamp: time.Now().UnixMilli(),
		Tick:      tick,
		Kind:      kind,
		Count:     count,
		Source:    defaultSource,
	})
	tm.counters["collision_"+kind] += int(count)
}

func (tm *TelemetryManager) appendLocked(entry TelemetryData) {
	tm.data = append(tm.data, entry)

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[len(tm.data)-tm.maxEntries:]
	}
}

// PrintSummary выводит сводку телеметрии не чаще printInterval
func (tm *TelemetryManager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	now := time.Now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}

	tm.logger.Printf("[Telemetry] Всего записей: %d", len(tm.data))

	keys := make([]string, 0, len(tm.counters))
	for key := range tm.counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tm.logger.Printf("[Telemetry] %s: %d", key, tm.counters[key])
	}

	for _, data := range tm.latestStatesLocked() {
		tm.logger.Printf("[Telemetry] %s [тик %d]: позиция (%.3f, %.3f), скорость |%.3f|",
			data.ObjectID, data.Tick, data.Position.X, data.Position.Y, data.Speed)
	}

	// Сброс счетчиков
	tm.counters = make(map[string]int)
	tm.lastPrint = now
}

// latestStatesLocked последние состояния по каждой лошади, по возрастанию id
func (tm *TelemetryManager) latestStatesLocked() []TelemetryData {
	latest := make(map[string]TelemetryData)

	for i := len(tm.data) - 1; i >= 0; i-- {
		entry := tm.data[i]
		if entry.Kind != KindState {
			continue
		}
		if _, exists := latest[entry.ObjectID]; !exists {
			latest[entry.ObjectID] = entry
		}
	}

	out := make([]TelemetryData, 0, len(latest))
	for _, entry := range latest {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out
}

// Entries копия буфера записей
func (tm *TelemetryManager) Entries() []TelemetryData {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make([]TelemetryData, len(tm.data))
	copy(out, tm.data)
	return out
}

// Counters копия счетчиков с последней сводки
func (tm *TelemetryManager) Counters() map[string]int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make(map[string]int, len(tm.counters))
	for k, v := range tm.counters {
		out[k] = v
	}
	return out
}

// GetTelemetryJSON возвращает записи и счетчики телеметрии в JSON формате
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	export := struct {
		Entries  []TelemetryData `json:"entries"`
		Counters map[string]int  `json:"counters"`
	}{tm.data, tm.counters}

	jsonData, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonData), nil
}

// Enabled включена ли телеметрия
func (tm *TelemetryManager) Enabled() bool {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.enabled
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Printf("[Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = make([]TelemetryData, 0)
	tm.counters = make(map[string]int)
	tm.logger.Println("[Telemetry] Данные телеметрии очищены")
}
