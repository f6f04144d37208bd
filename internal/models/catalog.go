package models

// Category - категория услуг.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Region - регион работы.
type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Segment - ценовой сегмент.
type Segment struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RatingQuestion - вопрос анкеты оценки.
type RatingQuestion struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// RatingAnswer - ответ на вопрос анкеты.
type RatingAnswer struct {
	Question int64 `json:"question"`
	Value    int   `json:"value"`
}

// Rating - набор ответов одного пользователя о другом.
type Rating struct {
	Sender   int64          `json:"sender"`
	Receiver int64          `json:"receiver"`
	Answers  []RatingAnswer `json:"answers"`
	Comment  string         `json:"comment,omitempty"`
}

// SearchFilter - параметры поиска исполнителей.
type SearchFilter struct {
	Keywords []string `json:"keywords"`
	Category string   `json:"category,omitempty"`
	Group    string   `json:"group,omitempty"`
}

// SupportRequest - обращение в поддержку.
type SupportRequest struct {
	UserID   int64  `json:"user"`
	Username string `json:"username,omitempty"`
	Question string `json:"question"`
}
