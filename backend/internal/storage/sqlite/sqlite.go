package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/world"
)

const createMapsTableSQL = `
CREATE TABLE IF NOT EXISTS Maps (
    ID TEXT PRIMARY KEY,
    Name TEXT NOT NULL,
    Obstacles TEXT NOT NULL,
    HorseSpawn TEXT NOT NULL,
    CoinSpawn TEXT NOT NULL,
    UpdatedAt TEXT NOT NULL
);
`

const createMapsNameIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_maps_name ON Maps (Name);
`

const createWinsTableSQL = `
CREATE TABLE IF NOT EXISTS HorseWins (
    Horse TEXT PRIMARY KEY,
    Wins INTEGER NOT NULL
);
`

const createSettingsTableSQL = `
CREATE TABLE IF NOT EXISTS Settings (
    Name TEXT PRIMARY KEY,
    Value TEXT NOT NULL
);
`

// Ключи сводной статистики в таблице Settings
const (
	keyGamesPlayed  = "games_played"
	keyLastPlayed   = "last_played"
	keyCurrentMapID = "current_map_id"
)

// Store хранилище карт, статистики и настроек в SQLite
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

var (
	_ maps.Store  = (*Store)(nil)
	_ stats.Store = (*Store)(nil)
)

// Open открывает базу и создает таблицы
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", path, err)
	}
	// SQLite не поддерживает параллельную запись
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Printf("[Storage] База данных %s открыта", path)
	return s, nil
}

func (s *Store) initialize() error {
	for _, stmt := range []string{createMapsTableSQL, createMapsNameIndexSQL, createWinsTableSQL, createSettingsTableSQL} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("error executing SQL statement: %s: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMap вставляет или обновляет карту, порядок добавления сохраняется
func (s *Store) SaveMap(ctx context.Context, m maps.MapData) error {
	obstacles, err := json.Marshal(m.Obstacles)
	if err != nil {
		return err
	}
	horse, err := json.Marshal(m.HorseSpawn)
	if err != nil {
		return err
	}
	coin, err := json.Marshal(m.CoinSpawn)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO Maps (ID, Name, Obstacles, HorseSpawn, CoinSpawn, UpdatedAt) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(ID) DO UPDATE SET
    Name = excluded.Name,
    Obstacles = excluded.Obstacles,
    HorseSpawn = excluded.HorseSpawn,
    CoinSpawn = excluded.CoinSpawn,
    UpdatedAt = excluded.UpdatedAt`,
		m.ID, m.Name, string(obstacles), string(horse), string(coin), m.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

// LoadMaps все карты в порядке добавления
func (s *Store) LoadMaps(ctx context.Context) ([]maps.MapData, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ID, Name, Obstacles, HorseSpawn, CoinSpawn, UpdatedAt FROM Maps ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []maps.MapData
	for rows.Next() {
		var (
			m                                 maps.MapData
			obstacles, horse, coin, updatedAt string
		)
		if err := rows.Scan(&m.ID, &m.Name, &obstacles, &horse, &coin, &updatedAt); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(obstacles), &m.Obstacles); err != nil {
			return nil, fmt.Errorf("map %s: obstacles: %w", m.ID, err)
		}
		if m.Obstacles == nil {
			m.Obstacles = []world.Obstacle{}
		}
		if err := json.Unmarshal([]byte(horse), &m.HorseSpawn); err != nil {
			return nil, fmt.Errorf("map %s: horse spawn: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(coin), &m.CoinSpawn); err != nil {
			return nil, fmt.Errorf("map %s: coin spawn: %w", m.ID, err)
		}
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("map %s: timestamp: %w", m.ID, err)
		}

		result = append(result, m)
	}
	return result, rows.Err()
}

// DeleteMap удаляет карту, false если ее не было
func (s *Store) DeleteMap(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM Maps WHERE ID = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LoadStats читает статистику гонок
func (s *Store) LoadStats(ctx context.Context) (stats.Stats, error) {
	result := stats.Stats{Wins: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, "SELECT Horse, Wins FROM HorseWins")
	if err != nil {
		return result, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			horse string
			wins  int
		)
		if err := rows.Scan(&horse, &wins); err != nil {
			return result, err
		}
		result.Wins[horse] = wins
	}
	if err := rows.Err(); err != nil {
		return result, err
	}

	if v, ok, err := s.Setting(ctx, keyGamesPlayed); err != nil {
		return result, err
	} else if ok {
		if result.GamesPlayed, err = strconv.Atoi(v); err != nil {
			return result, fmt.Errorf("games played: %w", err)
		}
	}

	if v, ok, err := s.Setting(ctx, keyLastPlayed); err != nil {
		return result, err
	} else if ok {
		if result.LastPlayed, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return result, fmt.Errorf("last played: %w", err)
		}
	}

	if v, ok, err := s.Setting(ctx, keyCurrentMapID); err != nil {
		return result, err
	} else if ok {
		result.CurrentMapID = v
	}

	return result, nil
}

// SaveStats заменяет статистику целиком в одной транзакции
func (s *Store) SaveStats(ctx context.Context, st stats.Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM HorseWins"); err != nil {
		tx.Rollback()
		return err
	}
	for horse, wins := range st.Wins {
		if _, err := tx.ExecContext(ctx, "INSERT INTO HorseWins (Horse, Wins) VALUES (?, ?)", horse, wins); err != nil {
			tx.Rollback()
			return err
		}
	}

	values := map[string]string{
		keyGamesPlayed:  strconv.Itoa(st.GamesPlayed),
		keyLastPlayed:   st.LastPlayed.UTC().Format(time.RFC3339Nano),
		keyCurrentMapID: st.CurrentMapID,
	}
	for key, value := range values {
		if err := setSetting(ctx, tx, key, value); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Setting значение настройки, false если ее нет
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT Value FROM Settings WHERE Name = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting сохраняет настройку
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, s.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO Settings (Name, Value) VALUES (?, ?)", key, value)
	return err
}
