package models

// MessageRef - ссылка на ранее отправленное сообщение. Содержит достаточно
// данных, чтобы отредактировать, удалить или переотправить сообщение без
// обращения к транспорту.
// MessageRef identifies a sent message for later edit/delete/resend.
type MessageRef struct {
	ID       int       `json:"id"`
	Text     string    `json:"text,omitempty"`
	Markup   *Keyboard `json:"markup,omitempty"`
	FromUser bool      `json:"fromUser,omitempty"` // входящее сообщение пользователя, не переотправляется
	Media    bool      `json:"media,omitempty"`    // фото или документ, не переотправляется
}

// Resendable сообщает, можно ли восстановить сообщение повторной отправкой текста.
func (r MessageRef) Resendable() bool {
	return !r.FromUser && !r.Media && r.Text != ""
}

// Outgoing - описание текстового сообщения к отправке.
type Outgoing struct {
	Text      string
	Keyboard  *Keyboard
	ParseMode string
}

// OutgoingFromRef восстанавливает описание сообщения по ссылке.
func OutgoingFromRef(ref MessageRef) Outgoing {
	return Outgoing{Text: ref.Text, Keyboard: ref.Markup}
}

// Attachment - файл для отправки фото или документом.
type Attachment struct {
	Name    string
	Data    []byte
	Caption string
}
