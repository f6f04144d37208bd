package models

// Order - заказ на бэкенде. Бот читает из него только поля, которые выводит
// или по которым ветвится.
type Order struct {
	ID          int64   `json:"id,omitempty"`
	OwnerID     int64   `json:"owner" validate:"required"`
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"required,min=10,max=2000"`
	Price       float64 `json:"price" validate:"gt=0"`
	ExpireDate  string  `json:"expire_date" validate:"required,datetime=2006-01-02"`
	Status      string  `json:"status,omitempty"`
	Executor    *int64  `json:"executor,omitempty"`
}

// Статусы заказа, по которым бот меняет набор кнопок.
const (
	ORDER_STATUS_OPEN   = "open"
	ORDER_STATUS_ACTIVE = "active"
	ORDER_STATUS_DONE   = "done"
)

// Page - страница списка с бэкенда (формат пагинации DRF).
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
