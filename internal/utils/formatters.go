package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthGenitive = map[time.Month]string{
	time.January:   "января",
	time.February:  "февраля",
	time.March:     "марта",
	time.April:     "апреля",
	time.May:       "мая",
	time.June:      "июня",
	time.July:      "июля",
	time.August:    "августа",
	time.September: "сентября",
	time.October:   "октября",
	time.November:  "ноября",
	time.December:  "декабря",
}

var (
	emojiPattern    = regexp.MustCompile(`[\p{So}\p{Sk}]`)
	variationMarker = strings.NewReplacer("\uFE0F", "", "\u200D", "")
)

// Int64SliceToStringSlice преобразует слайс int64 в слайс string.
func Int64SliceToStringSlice(in []int64) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}

// StringSliceToInt64Slice разбирает id из строк, пропуская нечисловые.
func StringSliceToInt64Slice(in []string) []int64 {
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// FormatDateForDisplay форматирует дату для отображения, например "25 мая 2026".
// Нераспознанную строку возвращает как есть.
func FormatDateForDisplay(dateStr string) string {
	if dateStr == "" {
		return "не указана"
	}
	parsed, err := ParseDate(dateStr, time.Local)
	if err != nil {
		return dateStr
	}
	return fmt.Sprintf("%d %s %d", parsed.Day(), monthGenitive[parsed.Month()], parsed.Year())
}

// FormatPrice форматирует сумму с разделителем разрядов: 1 250 000 ₽.
func FormatPrice(price float64) string {
	whole := int64(price)
	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	if frac := price - float64(whole); frac >= 0.005 {
		b.WriteString(strings.TrimPrefix(strconv.FormatFloat(frac, 'f', 2, 64), "0"))
	}
	return b.String() + " ₽"
}

// StripEmoji удаляет эмодзи из строки.
func StripEmoji(text string) string {
	return strings.TrimSpace(variationMarker.Replace(emojiPattern.ReplaceAllString(text, "")))
}

// FormatPhoneNumber форматирует номер телефона для отображения.
func FormatPhoneNumber(phone string) string {
	cleaned := phoneCleanup.ReplaceAllString(phone, "")

	if strings.HasPrefix(cleaned, "+7") && len(cleaned) == 12 {
		return fmt.Sprintf("+7 (%s) %s-%s-%s", cleaned[2:5], cleaned[5:8], cleaned[8:10], cleaned[10:12])
	}
	if len(cleaned) == 11 && (cleaned[0] == '8' || cleaned[0] == '7') {
		return fmt.Sprintf("+7 (%s) %s-%s-%s", cleaned[1:4], cleaned[4:7], cleaned[7:9], cleaned[9:11])
	}
	if len(cleaned) == 10 {
		return fmt.Sprintf("+7 (%s) %s-%s-%s", cleaned[0:3], cleaned[3:6], cleaned[6:8], cleaned[8:10])
	}
	return phone
}

// EscapeTelegramMarkdown экранирует специальные символы для Telegram Markdown (старый стиль).
func EscapeTelegramMarkdown(text string) string {
	return strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[").Replace(text)
}

// Truncate обрезает строку до n символов, добавляя многоточие.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
