package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"conciergebot/internal/apperrors"
)

var (
	phoneCleanup  = regexp.MustCompile(`[^\d+]`)
	digitsCleanup = regexp.MustCompile(`[^\d]`)
	russianPhone  = regexp.MustCompile(`^\+7\d{10}$`)
)

// ValidatePhoneNumber проверяет и нормализует номер телефона.
// Возвращает номер в формате +7XXXXXXXXXX или ошибку.
func ValidatePhoneNumber(phone string) (string, error) {
	phone = strings.ReplaceAll(phone, "\\", "")
	phone = strings.TrimSpace(phone)

	digitsOnly := phoneCleanup.ReplaceAllString(phone, "")
	if strings.HasPrefix(digitsOnly, "+") {
		if russianPhone.MatchString(digitsOnly) {
			return digitsOnly, nil
		}
		return "", apperrors.NewValidationError("phone", "Номер должен быть в формате +7XXXXXXXXXX.")
	}

	// Без '+' считаем номер российским.
	digitsOnly = digitsCleanup.ReplaceAllString(phone, "")
	switch {
	case len(digitsOnly) == 11 && (digitsOnly[0] == '8' || digitsOnly[0] == '7'):
		return "+7" + digitsOnly[1:], nil
	case len(digitsOnly) == 10:
		return "+7" + digitsOnly, nil
	}
	return "", apperrors.NewValidationError("phone", "Неверный формат номера, укажите его как +7XXXXXXXXXX или 8XXXXXXXXXX.")
}

// ValidateName проверяет имя или название: от 2 до 100 символов, не только цифры.
func ValidateName(input string) (string, error) {
	name := strings.Join(strings.Fields(input), " ")
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 100 {
		return "", apperrors.NewValidationError("name", "Имя должно содержать от 2 до 100 символов.")
	}
	if strings.Trim(name, "0123456789 ") == "" {
		return "", apperrors.NewValidationError("name", "Имя не может состоять только из цифр.")
	}
	return name, nil
}

// ValidateText проверяет длину свободного текста в символах.
func ValidateText(field string, min, max int) func(string) (string, error) {
	return func(input string) (string, error) {
		text := strings.TrimSpace(input)
		n := utf8.RuneCountInString(text)
		if n < min {
			return "", apperrors.NewValidationError(field, "Слишком коротко: нужно не меньше "+strconv.Itoa(min)+" символов.")
		}
		if n > max {
			return "", apperrors.NewValidationError(field, "Слишком длинно: не больше "+strconv.Itoa(max)+" символов.")
		}
		return text, nil
	}
}

// ValidateYears проверяет стаж: целое число лет от 0 до 80.
func ValidateYears(input string) (string, error) {
	years, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return "", apperrors.NewValidationError("work_experience", "Отправьте число лет, например 5, или нажмите «Пропустить».")
	}
	if years < 0 || years > 80 {
		return "", apperrors.NewValidationError("work_experience", "Стаж должен быть от 0 до 80 лет.")
	}
	return strconv.Itoa(years), nil
}

// ValidatePrice проверяет бюджет: положительное число, пробелы и "₽" допускаются.
// Возвращает число без пробелов с точкой в качестве разделителя.
func ValidatePrice(input string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", "₽", "", "руб.", "", "руб", "", ",", ".").Replace(strings.ToLower(input))
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "", apperrors.NewValidationError("price", "Укажите бюджет числом, например 150000.")
	}
	if price <= 0 {
		return "", apperrors.NewValidationError("price", "Бюджет должен быть больше нуля.")
	}
	if price > 1e10 {
		return "", apperrors.NewValidationError("price", "Слишком большой бюджет.")
	}
	return strconv.FormatFloat(price, 'f', -1, 64), nil
}

// ParseDate разбирает дату в форматах ДД.ММ.ГГГГ, ГГГГ-ММ-ДД или "17 мая 2025".
func ParseDate(input string, loc *time.Location) (time.Time, error) {
	dateStr := strings.TrimSpace(strings.ReplaceAll(input, "_", " "))
	if dateStr == "" {
		return time.Time{}, apperrors.NewValidationError("expire_date", "Дата не указана.")
	}

	for _, layout := range []string{"02.01.2006", "2.1.2006", "2006-01-02", "02/01/2006"} {
		if parsed, err := time.ParseInLocation(layout, dateStr, loc); err == nil {
			return parsed, nil
		}
	}

	parts := strings.Fields(strings.ToLower(dateStr))
	if len(parts) == 3 {
		day, errDay := strconv.Atoi(parts[0])
		year, errYear := strconv.Atoi(parts[2])
		if month, ok := russianMonth(parts[1]); ok && errDay == nil && errYear == nil && day >= 1 && day <= 31 {
			parsed := time.Date(year, month, day, 0, 0, 0, 0, loc)
			if parsed.Day() == day {
				return parsed, nil
			}
		}
	}
	return time.Time{}, apperrors.NewValidationError("expire_date", "Некорректная дата. Используйте формат ДД.ММ.ГГГГ.")
}

// ValidateFutureDate проверяет, что дата позже сегодняшней, и возвращает ее
// в формате ГГГГ-ММ-ДД, который принимает бэкенд.
func ValidateFutureDate(input string, now time.Time) (string, error) {
	parsed, err := ParseDate(input, now.Location())
	if err != nil {
		return "", err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !parsed.After(today) {
		return "", apperrors.NewValidationError("expire_date", "Дата должна быть позже сегодняшней.")
	}
	if parsed.After(today.AddDate(5, 0, 0)) {
		return "", apperrors.NewValidationError("expire_date", "Дата слишком далеко в будущем.")
	}
	return parsed.Format("2006-01-02"), nil
}

func russianMonth(word string) (time.Month, bool) {
	for m, name := range monthGenitive {
		if name == word {
			return m, true
		}
	}
	// Сокращения вида "янв", "сент".
	if utf8.RuneCountInString(word) >= 3 {
		for m, name := range monthGenitive {
			if strings.HasPrefix(name, word) {
				return m, true
			}
		}
	}
	return 0, false
}
