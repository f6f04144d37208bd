package models

// Button - кнопка клавиатуры. Для inline-кнопок Token уходит в callback_data,
// для reply-кнопок пользователь присылает Label текстом, и диспетчер находит
// токен по описанию клавиатуры текущего раздела.
type Button struct {
	Label          string `json:"label"`
	Token          string `json:"token,omitempty"`
	URL            string `json:"url,omitempty"`
	RequestContact bool   `json:"requestContact,omitempty"`
}

// Keyboard - описание клавиатуры как данных (подписи и токены), а не объект транспорта.
// Keyboard is a data descriptor of a keyboard, never a live transport object.
type Keyboard struct {
	Inline      bool       `json:"inline"`
	Rows        [][]Button `json:"rows,omitempty"`
	RemoveReply bool       `json:"removeReply,omitempty"`
}

// NewInlineKeyboard создает inline-клавиатуру из рядов.
func NewInlineKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Inline: true, Rows: rows}
}

// NewReplyKeyboard создает нижнюю клавиатуру из рядов.
func NewReplyKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Rows: rows}
}

// RemoveReplyKeyboard скрывает нижнюю клавиатуру.
func RemoveReplyKeyboard() *Keyboard {
	return &Keyboard{RemoveReply: true}
}

// Row - короткая запись для ряда кнопок.
func Row(buttons ...Button) []Button { return buttons }

// Btn - кнопка с токеном.
func Btn(label, token string) Button { return Button{Label: label, Token: token} }

// AddRow добавляет ряд кнопок.
func (k *Keyboard) AddRow(buttons ...Button) *Keyboard {
	if len(buttons) > 0 {
		k.Rows = append(k.Rows, buttons)
	}
	return k
}

// TokenForLabel ищет токен reply-кнопки по ее подписи.
func (k *Keyboard) TokenForLabel(label string) (string, bool) {
	if k == nil {
		return "", false
	}
	for _, row := range k.Rows {
		for _, b := range row {
			if b.Label == label && b.Token != "" {
				return b.Token, true
			}
		}
	}
	return "", false
}

// Clone возвращает глубокую копию клавиатуры.
func (k *Keyboard) Clone() *Keyboard {
	if k == nil {
		return nil
	}
	out := &Keyboard{Inline: k.Inline, RemoveReply: k.RemoveReply}
	for _, row := range k.Rows {
		out.Rows = append(out.Rows, append([]Button(nil), row...))
	}
	return out
}
