package handlers

import (
	"fmt"
	"math"
	"strconv"

	"conciergebot/internal/constants"
	"conciergebot/internal/gateway"
	"conciergebot/internal/models"
	"conciergebot/internal/texts"
)

// --- Клавиатуры / Keyboards ---

// navRow - ряд "Назад" и "Главное меню", которым заканчивается почти каждый экран.
func navRow(t *texts.Table) []models.Button {
	return models.Row(
		models.Btn(t.Get("button.back"), constants.CALLBACK_BACK),
		models.Btn(t.Get("button.home"), constants.CALLBACK_HOME),
	)
}

// pagerRow - листание страниц. Для одной страницы ряда нет.
func pagerRow(t *texts.Table, page, pages int) []models.Button {
	if pages <= 1 {
		return nil
	}
	var row []models.Button
	if page > 1 {
		row = append(row, models.Btn(t.Get("button.prev"), constants.CALLBACK_PREFIX_PAGE+strconv.Itoa(page-1)))
	}
	row = append(row, models.Btn(fmt.Sprintf("%d/%d", page, pages), constants.CALLBACK_NOOP))
	if page < pages {
		row = append(row, models.Btn(t.Get("button.next"), constants.CALLBACK_PREFIX_PAGE+strconv.Itoa(page+1)))
	}
	return row
}

// pageCount - число страниц для count элементов, минимум одна.
func pageCount(count int) int {
	pages := int(math.Ceil(float64(count) / float64(constants.ORDERS_PAGE_SIZE)))
	if pages < 1 {
		return 1
	}
	return pages
}

// pageExtra - Extra раздела со списком: запрос и номер страницы для листания.
func pageExtra(query string, page int) map[string]string {
	return map[string]string{
		constants.EXTRA_QUERY: query,
		constants.EXTRA_PAGE:  strconv.Itoa(page),
	}
}

// --- Подписи / Labels ---

var groupLabels = map[constants.Role]string{
	constants.ROLE_DESIGNER:   "Дизайнер",
	constants.ROLE_OUTSOURCER: "Исполнитель",
	constants.ROLE_SUPPLIER:   "Поставщик",
}

func groupLabel(group string) string {
	if label, ok := groupLabels[constants.ParseRole(group)]; ok {
		return label
	}
	return "не указана"
}

var orderStatusLabels = map[string]string{
	models.ORDER_STATUS_OPEN:   "открыт",
	models.ORDER_STATUS_ACTIVE: "в работе",
	models.ORDER_STATUS_DONE:   "завершен",
}

func orderStatusLabel(status string) string {
	if label, ok := orderStatusLabels[status]; ok {
		return label
	}
	if status == "" {
		return orderStatusLabels[models.ORDER_STATUS_OPEN]
	}
	return status
}

func ratingLabel(rating *float64) string {
	if rating == nil {
		return "нет оценок"
	}
	return strconv.FormatFloat(*rating, 'f', 1, 64)
}

// yearsLabel - "1 год", "3 года", "11 лет".
func yearsLabel(years *int) string {
	if years == nil {
		return "не указан"
	}
	n := *years
	word := "лет"
	switch mod100 := n % 100; {
	case mod100 >= 11 && mod100 <= 14:
	case n%10 == 1:
		word = "год"
	case n%10 >= 2 && n%10 <= 4:
		word = "года"
	}
	return fmt.Sprintf("%d %s", n, word)
}

func regionName(regions []models.Region, id string) string {
	for _, r := range regions {
		if strconv.FormatInt(r.ID, 10) == id {
			return r.Name
		}
	}
	if id == "" {
		return "не указан"
	}
	return id
}

// resultError превращает неуспешный ответ бэкенда в ошибку.
func resultError(what string, res gateway.Result) error {
	if res.Err != nil {
		return fmt.Errorf("%s: %w", what, res.Err)
	}
	if detail := res.Detail(); detail != "" {
		return fmt.Errorf("%s: status %d: %s", what, res.StatusCode, detail)
	}
	return fmt.Errorf("%s: status %d", what, res.StatusCode)
}
