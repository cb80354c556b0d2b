package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile файл переменных окружения, который ищется рядом с файлом конфигурации
const EnvFile = ".env"

// AppConfig настройки сервера гонок
type AppConfig struct {
	HTTPAddr          string `json:"http_addr"`
	GRPCAddr          string `json:"grpc_addr"`
	DatabasePath      string `json:"database_path"`
	MapsDir           string `json:"maps_dir"`
	TickRate          int    `json:"tick_rate"`             // тиков в секунду
	BroadcastInterval int    `json:"broadcast_interval_ms"` // период рассылки снимков клиентам
	HorseCount        int    `json:"horse_count"`
	CountdownInitial  int    `json:"countdown_initial"`
	Telemetry         bool   `json:"telemetry"`
	Seed              uint64 `json:"seed"` // 0 - случайное зерно
}

// Default значения по умолчанию
func Default() AppConfig {
	return AppConfig{
		HTTPAddr:          ":8080",
		GRPCAddr:          ":50051",
		DatabasePath:      "race.db",
		MapsDir:           "maps",
		TickRate:          60,
		BroadcastInterval: 50,
		HorseCount:        4,
		CountdownInitial:  10,
		Telemetry:         true,
	}
}

// BroadcastEvery период рассылки снимков
func (c AppConfig) BroadcastEvery() time.Duration {
	return time.Duration(c.BroadcastInterval) * time.Millisecond
}

// Validate проверяет значения
func (c AppConfig) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return errors.New("не задан http_addr")
	case c.TickRate <= 0:
		return fmt.Errorf("некорректный tick_rate: %d", c.TickRate)
	case c.BroadcastInterval < 0:
		return fmt.Errorf("некорректный broadcast_interval_ms: %d", c.BroadcastInterval)
	case c.HorseCount <= 0:
		return fmt.Errorf("некорректный horse_count: %d", c.HorseCount)
	case c.CountdownInitial < 0:
		return fmt.Errorf("некорректный countdown_initial: %d", c.CountdownInitial)
	}
	return nil
}

var (
	instance *AppConfig
	loadErr  error
	once     sync.Once
)

// Load читает конфигурацию один раз за время жизни процесса
func Load(filePath string) (*AppConfig, error) {
	once.Do(func() {
		instance, loadErr = Read(filePath)
	})
	return instance, loadErr
}

// Read читает файл конфигурации. Если файла нет, он создается со значениями по умолчанию.
// Отсутствующие в файле поля получают значения по умолчанию.
// Поверх файла применяются переменные RACE_* из .env и окружения процесса,
// окружение процесса важнее .env.
func Read(filePath string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := save(filePath, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("error reading config %s: %w", filePath, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config %s: %w", filePath, err)
		}
	}

	env, err := readEnv(filepath.Join(filepath.Dir(filePath), EnvFile))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filePath, err)
	}
	return &cfg, nil
}

// readEnv значения из .env, перекрытые окружением процесса
func readEnv(envPath string) (map[string]string, error) {
	env, err := godotenv.Read(envPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		env = map[string]string{}
	case err != nil:
		return nil, fmt.Errorf("error reading %s: %w", envPath, err)
	}

	for key := range envSetters {
		if value, ok := os.LookupEnv(key); ok {
			env[key] = value
		}
	}
	return env, nil
}

var envSetters = map[string]func(c *AppConfig, value string) error{
	"RACE_HTTP_ADDR":             func(c *AppConfig, v string) error { c.HTTPAddr = v; return nil },
	"RACE_GRPC_ADDR":             func(c *AppConfig, v string) error { c.GRPCAddr = v; return nil },
	"RACE_DATABASE_PATH":         func(c *AppConfig, v string) error { c.DatabasePath = v; return nil },
	"RACE_MAPS_DIR":              func(c *AppConfig, v string) error { c.MapsDir = v; return nil },
	"RACE_TICK_RATE":             intSetter(func(c *AppConfig) *int { return &c.TickRate }),
	"RACE_BROADCAST_INTERVAL_MS": intSetter(func(c *AppConfig) *int { return &c.BroadcastInterval }),
	"RACE_HORSE_COUNT":           intSetter(func(c *AppConfig) *int { return &c.HorseCount }),
	"RACE_COUNTDOWN_INITIAL":     intSetter(func(c *AppConfig) *int { return &c.CountdownInitial }),
	"RACE_TELEMETRY": func(c *AppConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Telemetry = b
		return nil
	},
	"RACE_SEED": func(c *AppConfig, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		c.Seed = n
		return nil
	},
}

func intSetter(field func(c *AppConfig) *int) func(c *AppConfig, value string) error {
	return func(c *AppConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func (c *AppConfig) applyEnv(env map[string]string) error {
	for key, set := range envSetters {
		value, ok := env[key]
		if !ok {
			continue
		}
		if err := set(c, value); err != nil {
			return fmt.Errorf("error parsing %s=%q: %w", key, value, err)
		}
	}
	return nil
}

func save(filePath string, cfg AppConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config %s: %w", filePath, err)
	}
	return nil
}
