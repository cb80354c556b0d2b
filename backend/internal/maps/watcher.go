package maps

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher импортирует JSON файлы карт из каталога в библиотеку
// при создании и изменении файлов.
type Watcher struct {
	dir      string
	library  *Library
	logger   *log.Logger
	watcher  *fsnotify.Watcher
	onImport func(MapData)
}

// NewWatcher создает каталог, если его нет, и подписывается на его изменения
func NewWatcher(dir string, library *Library, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating maps dir %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("error watching %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		library: library,
		logger:  logger,
		watcher: fw,
	}, nil
}

// OnImport задает обработчик успешно импортированных карт
func (w *Watcher) OnImport(fn func(MapData)) {
	w.onImport = fn
}

// ImportExisting импортирует уже лежащие в каталоге файлы
func (w *Watcher) ImportExisting(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("error reading maps dir: %w", err)
	}

	imported := 0
	for _, e := range entries {
		if e.IsDir() || !isMapFile(e.Name()) {
			continue
		}
		if _, err := w.importFile(ctx, filepath.Join(w.dir, e.Name())); err != nil {
			w.logger.Printf("[MapWatcher] ПРЕДУПРЕЖДЕНИЕ: %v", err)
			continue
		}
		imported++
	}
	return imported, nil
}

// Run обрабатывает события каталога до отмены контекста
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.logger.Printf("[MapWatcher] Наблюдение за каталогом %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isMapFile(event.Name) {
				continue
			}
			if _, err := w.importFile(ctx, event.Name); err != nil {
				// файл мог быть записан не полностью, дождемся следующего события
				w.logger.Printf("[MapWatcher] ПРЕДУПРЕЖДЕНИЕ: %v", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("[MapWatcher] Ошибка наблюдения: %v", err)
		}
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) (MapData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MapData{}, fmt.Errorf("error reading %s: %w", path, err)
	}

	m, err := Decode(data)
	if err != nil {
		return MapData{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	name := m.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	saved, err := w.library.SaveMap(ctx, name, m.Obstacles, m.HorseSpawn, m.CoinSpawn)
	if err != nil {
		return MapData{}, err
	}

	w.logger.Printf("[MapWatcher] Импортирована карта %q из %s", saved.Name, filepath.Base(path))
	if w.onImport != nil {
		w.onImport(saved)
	}
	return saved, nil
}

func isMapFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
