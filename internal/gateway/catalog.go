package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"conciergebot/internal/models"
)

// Справочники общие для всех чатов и почти не меняются, поэтому живут в
// bigcache процесса. Гонка двух первых запросов безвредна: значения одинаковы.
const (
	cacheCategories = "catalog:categories"
	cacheRegions    = "catalog:regions"
	cacheSegments   = "catalog:segments"
	cacheQuestions  = "catalog:rating_questions"
)

// Categories возвращает категории услуг.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	return cachedList[models.Category](ctx, c, cacheCategories, "api/categories")
}

// Regions возвращает регионы.
func (c *Client) Regions(ctx context.Context) ([]models.Region, error) {
	return cachedList[models.Region](ctx, c, cacheRegions, "api/regions")
}

// Segments возвращает ценовые сегменты.
func (c *Client) Segments(ctx context.Context) ([]models.Segment, error) {
	return cachedList[models.Segment](ctx, c, cacheSegments, "api/segments")
}

// RatingQuestions возвращает вопросы анкеты оценки.
func (c *Client) RatingQuestions(ctx context.Context) ([]models.RatingQuestion, error) {
	return cachedList[models.RatingQuestion](ctx, c, cacheQuestions, "api/rating/questions")
}

// InvalidateCatalogs сбрасывает справочники.
func (c *Client) InvalidateCatalogs() {
	if c.cache == nil {
		return
	}
	for _, key := range []string{cacheCategories, cacheRegions, cacheSegments, cacheQuestions} {
		_ = c.cache.Delete(key)
	}
}

func cachedList[T any](ctx context.Context, c *Client, key, resource string) ([]T, error) {
	if c.cache != nil {
		raw, err := c.cache.Get(key)
		if err == nil {
			var items []T
			if err := json.Unmarshal(raw, &items); err == nil {
				return items, nil
			}
		} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
			c.logger.Debug("ошибка чтения кеша", zap.String("key", key), zap.Error(err))
		}
	}

	res := c.Fetch(ctx, resource, nil)
	if !res.OK() {
		return nil, fmt.Errorf("справочник %s: %w", resource, res.Err)
	}
	items, err := decodeList[T](res.Data)
	if err != nil {
		return nil, fmt.Errorf("разбор справочника %s: %w", resource, err)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(items); err == nil {
			if err := c.cache.Set(key, raw); err != nil {
				c.logger.Debug("справочник не помещен в кеш", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return items, nil
}

// decodeList принимает как голый массив, так и страницу DRF.
func decodeList[T any](data json.RawMessage) ([]T, error) {
	if len(data) > 0 && data[0] == '[' {
		var items []T
		err := json.Unmarshal(data, &items)
		return items, err
	}
	var page models.Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}
