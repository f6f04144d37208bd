package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"conciergebot/internal/models"
)

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "+7 (999) 123-45-67", FormatPhoneNumber("+79991234567"))
	assert.Equal(t, "+7 (999) 123-45-67", FormatPhoneNumber("89991234567"))
	assert.Equal(t, "+7 (999) 123-45-67", FormatPhoneNumber("9991234567"))
	assert.Equal(t, "123", FormatPhoneNumber("123"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0 ₽", FormatPrice(0))
	assert.Equal(t, "999 ₽", FormatPrice(999))
	assert.Equal(t, "1 000 ₽", FormatPrice(1000))
	assert.Equal(t, "1 250 000 ₽", FormatPrice(1250000))
	assert.Equal(t, "1 500.50 ₽", FormatPrice(1500.5))
}

func TestFormatDateForDisplay(t *testing.T) {
	assert.Equal(t, "17 мая 2030", FormatDateForDisplay("2030-05-17"))
	assert.Equal(t, "не указана", FormatDateForDisplay(""))
	assert.Equal(t, "когда-нибудь", FormatDateForDisplay("когда-нибудь"))
}

func TestStripEmojiAndEscape(t *testing.T) {
	assert.Equal(t, "Мои заказы", StripEmoji("📦 Мои заказы"))
	assert.Equal(t, "Назад", StripEmoji("⬅️ Назад"))
	assert.Equal(t, "a\\_b \\*c\\*", EscapeTelegramMarkdown("a_b *c*"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "короткий", Truncate("короткий", 20))
	assert.Equal(t, "длинн…", Truncate("длинный текст", 6))
}

func TestSliceConversions(t *testing.T) {
	assert.Equal(t, []string{"1", "20"}, Int64SliceToStringSlice([]int64{1, 20}))
	assert.Equal(t, []int64{1, 20}, StringSliceToInt64Slice([]string{"1", " 20 ", "x"}))
}

func TestProfileLinkRoundTrip(t *testing.T) {
	link, err := GenerateProfileLink("concierge_bot", 42)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/concierge_bot?start=profile_42", link)

	id, ok := ParseProfilePayload("profile_42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ParseProfilePayload("ref_42")
	assert.False(t, ok)
	_, ok = ParseProfilePayload("profile_x")
	assert.False(t, ok)

	_, err = GenerateProfileLink("", 42)
	assert.Error(t, err)
}

func TestGenerateQRCodeIsPNG(t *testing.T) {
	png, err := GenerateQRCode("concierge_bot", 42)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestOrdersWorkbook(t *testing.T) {
	data, err := OrdersWorkbook([]models.Order{
		{ID: 1, Title: "Кухня", Description: "Кухня из дуба", Price: 150000, ExpireDate: "2030-05-17", Status: "open"},
		{ID: 2, Title: "Свет", Description: "Трековые светильники", Price: 30000, ExpireDate: "2030-06-01", Status: "done"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Заказы"}, f.GetSheetList())
	rows, err := f.GetRows("Заказы")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Название", "Описание", "Бюджет", "Срок", "Статус"}, rows[0])
	assert.Equal(t, "Кухня", rows[1][1])
	assert.Equal(t, "17 мая 2030", rows[1][4])
	assert.Equal(t, "done", rows[2][5])
}
