// Package texts хранит таблицу "идентификатор -> отображаемый текст".
// Маршрутизация и сохраненные сессии опираются только на идентификаторы,
// поэтому тексты можно менять на лету.
package texts

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"

	"conciergebot/internal/constants"
)

//go:embed default.yaml
var defaultTexts []byte

// Table - потокобезопасная таблица текстов.
type Table struct {
	mu       sync.RWMutex
	values   map[string]string
	defaults map[string]string
	path     string
	logger   *zap.Logger
}

// NewDefault создает таблицу только со встроенными текстами.
func NewDefault() *Table {
	defaults, err := parse(defaultTexts)
	if err != nil {
		// Встроенный файл проверяется тестами.
		panic(fmt.Sprintf("texts: встроенные тексты повреждены: %v", err))
	}
	return &Table{values: copyMap(defaults), defaults: defaults, logger: zap.NewNop()}
}

// Load создает таблицу и накладывает поверх встроенных текстов файл path.
// Пустой path означает только встроенные тексты.
func Load(path string, logger *zap.Logger) (*Table, error) {
	t := NewDefault()
	if logger != nil {
		t.logger = logger.Named("texts")
	}
	t.path = path
	if path == "" {
		return t, nil
	}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload перечитывает файл с текстами. При ошибке таблица не меняется.
func (t *Table) Reload() error {
	if t.path == "" {
		return nil
	}
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("texts: чтение %s: %w", t.path, err)
	}
	overrides, err := parse(raw)
	if err != nil {
		return fmt.Errorf("texts: разбор %s: %w", t.path, err)
	}

	merged := copyMap(t.defaults)
	for k, v := range overrides {
		merged[k] = v
	}

	t.mu.Lock()
	t.values = merged
	t.mu.Unlock()
	t.logger.Info("тексты загружены", zap.String("path", t.path), zap.Int("overrides", len(overrides)))
	return nil
}

// Get возвращает текст по ключу. С аргументами применяется fmt.Sprintf.
// Для неизвестного ключа возвращается сам ключ, чтобы пропуск был виден в чате.
func (t *Table) Get(key string, args ...interface{}) string {
	t.mu.RLock()
	value, ok := t.values[key]
	t.mu.RUnlock()
	if !ok {
		t.logger.Warn("нет текста для ключа", zap.String("key", key))
		value = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(value, args...)
	}
	return value
}

// Title возвращает заголовок раздела меню.
func (t *Table) Title(state constants.MenuState) string {
	return t.Get("state." + string(state))
}

// Watch следит за файлом текстов и перечитывает его при записи.
// Блокируется до отмены ctx.
func (t *Table) Watch(ctx context.Context) error {
	if t.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("texts: watcher: %w", err)
	}
	defer watcher.Close()

	// Редакторы часто заменяют файл целиком, поэтому следим за каталогом.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("texts: watch %s: %w", t.path, err)
	}
	target := filepath.Clean(t.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if err := t.Reload(); err != nil {
					t.logger.Warn("некорректный файл текстов, оставлены прежние", zap.Error(err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("ошибка наблюдения за текстами", zap.Error(err))
		}
	}
}

func parse(raw []byte) (map[string]string, error) {
	values := make(map[string]string)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
