package stats

import (
	"context"
	"fmt"
	"log"
	"maps"
	"sync"
	"time"

	"horse-race/backend/internal/game"
)

// Ключи настроек
const (
	SettingDefaultMap = "default_map_id"
)

// Stats статистика завершенных гонок
type Stats struct {
	Wins         map[string]int `json:"wins"`
	GamesPlayed  int            `json:"gamesPlayed"`
	LastPlayed   time.Time      `json:"lastPlayed"`
	CurrentMapID string         `json:"currentMapId,omitempty"`
}

func (s Stats) clone() Stats {
	c := s
	c.Wins = maps.Clone(s.Wins)
	if c.Wins == nil {
		c.Wins = make(map[string]int)
	}
	return c
}

// Store хранилище статистики и настроек
type Store interface {
	LoadStats(ctx context.Context) (Stats, error)
	SaveStats(ctx context.Context, s Stats) error
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Recorder ведет статистику по событиям гонки и сохраняет ее в хранилище
type Recorder struct {
	store  Store
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	current Stats
}

// NewRecorder загружает сохраненную статистику
func NewRecorder(ctx context.Context, store Store, logger *log.Logger) (*Recorder, error) {
	if logger == nil {
		logger = log.Default()
	}

	loaded, err := store.LoadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading stats: %w", err)
	}

	return &Recorder{
		store:   store,
		logger:  logger,
		now:     time.Now,
		current: loaded.clone(),
	}, nil
}

// Stats копия текущей статистики
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.clone()
}

// Wins число побед лошади
func (r *Recorder) Wins(horse string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Wins[horse]
}

// RecordWin засчитывает победу и сыгранную гонку
func (r *Recorder) RecordWin(ctx context.Context, horse string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current.Wins[horse]++
	r.current.GamesPlayed++
	r.current.LastPlayed = r.now().UTC()

	return r.persistLocked(ctx)
}

// RecordGamePlayed засчитывает гонку без победителя и запоминает карту
func (r *Recorder) RecordGamePlayed(ctx context.Context, mapID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current.GamesPlayed++
	r.current.LastPlayed = r.now().UTC()
	r.current.CurrentMapID = mapID

	return r.persistLocked(ctx)
}

// Reset обнуляет статистику
func (r *Recorder) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = Stats{Wins: make(map[string]int), LastPlayed: r.now().UTC()}
	r.logger.Printf("[Stats] Статистика сброшена")

	return r.persistLocked(ctx)
}

func (r *Recorder) persistLocked(ctx context.Context) error {
	if err := r.store.SaveStats(ctx, r.current.clone()); err != nil {
		return fmt.Errorf("error saving stats: %w", err)
	}
	return nil
}

// SetDefaultMap запоминает карту, загружаемую при старте сервера
func (r *Recorder) SetDefaultMap(ctx context.Context, mapID string) error {
	if err := r.store.SetSetting(ctx, SettingDefaultMap, mapID); err != nil {
		return fmt.Errorf("error saving default map: %w", err)
	}
	r.logger.Printf("[Stats] Карта по умолчанию: %s", mapID)
	return nil
}

// DefaultMap ID карты по умолчанию, false если не задана
func (r *Recorder) DefaultMap(ctx context.Context) (string, bool, error) {
	id, ok, err := r.store.Setting(ctx, SettingDefaultMap)
	if err != nil {
		return "", false, fmt.Errorf("error loading default map: %w", err)
	}
	return id, ok && id != "", nil
}

// OnRaceEvent учитывает завершенные гонки
func (r *Recorder) OnRaceEvent(event game.Event) {
	var err error

	switch event.Type {
	case game.EventWon:
		err = r.RecordWin(context.Background(), event.Winner)
		if err == nil {
			r.logger.Printf("[Stats] Победа засчитана: %s", event.Winner)
		}
	case game.EventTimeUp:
		err = r.RecordGamePlayed(context.Background(), event.MapID)
	default:
		return
	}

	if err != nil {
		r.logger.Printf("[Stats] Ошибка записи статистики: %v", err)
	}
}

// MemoryStore хранилище статистики в памяти
type MemoryStore struct {
	mu       sync.Mutex
	stats    Stats
	settings map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats:    Stats{Wins: make(map[string]int)},
		settings: make(map[string]string),
	}
}

func (m *MemoryStore) LoadStats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.clone(), nil
}

func (m *MemoryStore) SaveStats(_ context.Context, s Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = s.clone()
	return nil
}

func (m *MemoryStore) Setting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *MemoryStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}
