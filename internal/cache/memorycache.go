package cache

import (
	"time"

	"github.com/allegro/bigcache/v3"
)

// NewInMemoryCache создает bigcache с временем жизни записей lifeWindow.
// Размеры подобраны под небольшие записи бота (справочники, отметки удаления),
// а не под стандартные 1024 шарда по 500 байт.
func NewInMemoryCache(lifeWindow time.Duration, maxMB int) (*bigcache.BigCache, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10000
	cfg.MaxEntrySize = 256
	cfg.HardMaxCacheSize = maxMB
	cfg.CleanWindow = time.Minute
	if lifeWindow < cfg.CleanWindow {
		cfg.CleanWindow = lifeWindow
	}
	cfg.Verbose = false
	return bigcache.NewBigCache(cfg)
}
