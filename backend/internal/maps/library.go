package maps

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"horse-race/backend/internal/world"
)

// Store хранилище карт
type Store interface {
	// SaveMap вставляет или заменяет карту по ID
	SaveMap(ctx context.Context, m MapData) error
	// LoadMaps все карты в порядке добавления
	LoadMaps(ctx context.Context) ([]MapData, error)
	// DeleteMap удаляет карту, false если ее не было
	DeleteMap(ctx context.Context, id string) (bool, error)
}

// Library библиотека карт. Карты с одинаковым именем перезаписываются с сохранением ID.
type Library struct {
	store  Store
	logger *log.Logger
	now    func() time.Time

	// сериализует поиск по имени и запись
	mu sync.Mutex
}

func NewLibrary(store Store, logger *log.Logger) *Library {
	if logger == nil {
		logger = log.Default()
	}
	return &Library{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SaveMap сохраняет карту. Незаданные точки спавна сохраняются как null.
func (l *Library) SaveMap(ctx context.Context, name string, obstacles []world.Obstacle, horseSpawn, coinSpawn world.OptionalPoint) (MapData, error) {
	if name == "" {
		return MapData{}, fmt.Errorf("%w: пустое имя", ErrInvalidMap)
	}

	m := MapData{
		Name:       name,
		Obstacles:  slices.Clone(obstacles),
		HorseSpawn: normalizeSpawn(horseSpawn),
		CoinSpawn:  normalizeSpawn(coinSpawn),
		Timestamp:  l.now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return MapData{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.LoadMaps(ctx)
	if err != nil {
		return MapData{}, fmt.Errorf("error loading maps: %w", err)
	}

	m.ID = ksuid.New().String()
	for _, e := range existing {
		if e.Name == name {
			m.ID = e.ID
			break
		}
	}

	if err := l.store.SaveMap(ctx, m); err != nil {
		return MapData{}, fmt.Errorf("error saving map %q: %w", name, err)
	}

	l.logger.Printf("[MapLibrary] Карта %q сохранена (id %s, препятствий %d)", name, m.ID, len(m.Obstacles))
	return m, nil
}

func normalizeSpawn(p world.OptionalPoint) world.OptionalPoint {
	if !p.IsSet() {
		return world.Null()
	}
	return p
}

// Maps все карты библиотеки
func (l *Library) Maps(ctx context.Context) ([]MapData, error) {
	maps, err := l.store.LoadMaps(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading maps: %w", err)
	}
	return maps, nil
}

// Map карта по ID
func (l *Library) Map(ctx context.Context, id string) (MapData, error) {
	maps, err := l.Maps(ctx)
	if err != nil {
		return MapData{}, err
	}
	for _, m := range maps {
		if m.ID == id {
			return m, nil
		}
	}
	return MapData{}, fmt.Errorf("%w: %s", ErrMapNotFound, id)
}

// DeleteMap удаляет карту по ID
func (l *Library) DeleteMap(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.store.DeleteMap(ctx, id)
	if err != nil {
		return fmt.Errorf("error deleting map %s: %w", id, err)
	}
	if !ok {
		l.logger.Printf("[MapLibrary] ПРЕДУПРЕЖДЕНИЕ: карта %s не найдена", id)
		return fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}

	l.logger.Printf("[MapLibrary] Карта %s удалена", id)
	return nil
}

// EnsureDefaults добавляет встроенные трассы, если библиотека пуста.
// Возвращает число добавленных карт.
func (l *Library) EnsureDefaults(ctx context.Context) (int, error) {
	existing, err := l.Maps(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		l.logger.Printf("[MapLibrary] Карт в библиотеке: %d, встроенные трассы не добавляются", len(existing))
		return 0, nil
	}

	added := 0
	for _, m := range DefaultMaps() {
		if _, err := l.SaveMap(ctx, m.Name, m.Obstacles, m.HorseSpawn, m.CoinSpawn); err != nil {
			return added, err
		}
		added++
	}

	l.logger.Printf("[MapLibrary] Добавлены встроенные трассы: %d", added)
	return added, nil
}

// FindByName карта по имени
func (l *Library) FindByName(ctx context.Context, name string) (MapData, error) {
	maps, err := l.Maps(ctx)
	if err != nil {
		return MapData{}, err
	}
	for _, m := range maps {
		if m.Name == name {
			return m, nil
		}
	}
	return MapData{}, fmt.Errorf("%w: %q", ErrMapNotFound, name)
}

// MemoryStore хранилище карт в памяти
type MemoryStore struct {
	mu   sync.RWMutex
	maps []MapData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveMap(_ context.Context, m MapData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.maps {
		if s.maps[i].ID == m.ID {
			s.maps[i] = m
			return nil
		}
	}
	s.maps = append(s.maps, m)
	return nil
}

func (s *MemoryStore) LoadMaps(_ context.Context) ([]MapData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.maps), nil
}

func (s *MemoryStore) DeleteMap(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.maps {
		if s.maps[i].ID == id {
			s.maps = slices.Delete(s.maps, i, i+1)
			return true, nil
		}
	}
	return false, nil
}
