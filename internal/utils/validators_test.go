package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciergebot/internal/apperrors"
)

func TestValidatePhoneNumber(t *testing.T) {
	cases := map[string]string{
		"+7 (999) 123-45-67": "+79991234567",
		"89991234567":        "+79991234567",
		"79991234567":        "+79991234567",
		"9991234567":         "+79991234567",
		"+7\\-999-123-45-67": "+79991234567",
	}
	for in, want := range cases {
		got, err := ValidatePhoneNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "12345", "+1 202 555 0100", "899912345678"} {
		_, err := ValidatePhoneNumber(bad)
		var ve *apperrors.ValidationError
		assert.ErrorAs(t, err, &ve, bad)
	}
}

func TestValidateName(t *testing.T) {
	got, err := ValidateName("  Анна   Петрова ")
	require.NoError(t, err)
	assert.Equal(t, "Анна Петрова", got)

	_, err = ValidateName("А")
	assert.Error(t, err)
	_, err = ValidateName("12345")
	assert.Error(t, err)
}

func TestValidateText(t *testing.T) {
	v := ValidateText("description", 10, 20)
	_, err := v("коротко")
	assert.Error(t, err)
	_, err = v("это описание точно длиннее двадцати символов")
	assert.Error(t, err)
	got, err := v("  кухня из дуба  ")
	require.NoError(t, err)
	assert.Equal(t, "кухня из дуба", got)
}

func TestValidateYears(t *testing.T) {
	got, err := ValidateYears(" 07 ")
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	for _, bad := range []string{"abc", "-1", "81", "5.5"} {
		_, err := ValidateYears(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidatePrice(t *testing.T) {
	cases := []struct{ in, want string }{
		{"150000", "150000"},
		{"150 000 ₽", "150000"},
		{"1500,50", "1500.5"},
		{"20000 руб.", "20000"},
		{"1\u00a0000", "1000"},
	}
	for _, c := range cases {
		got, err := ValidatePrice(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
	for _, bad := range []string{"", "дорого", "0", "-5"} {
		_, err := ValidatePrice(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2030, time.May, 17, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"17.05.2030", "17.5.2030", "2030-05-17", "17/05/2030", "17 мая 2030", "17 Мая 2030"} {
		got, err := ParseDate(in, time.UTC)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
	for _, bad := range []string{"", "31.02.2030", "завтра", "31 февраля 2030"} {
		_, err := ParseDate(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestValidateFutureDate(t *testing.T) {
	now := time.Date(2026, time.October, 16, 15, 0, 0, 0, time.UTC)

	got, err := ValidateFutureDate("17.10.2026", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", got)

	_, err = ValidateFutureDate("16.10.2026", now)
	assert.Error(t, err)
	_, err = ValidateFutureDate("01.01.2020", now)
	assert.Error(t, err)
	_, err = ValidateFutureDate("01.01.2040", now)
	assert.Error(t, err)
}
