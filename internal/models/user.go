package models

import "strings"

// User - профиль пользователя на бэкенде. ID совпадает с Telegram ID.
type User struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name" validate:"required,min=2,max=100"`
	Username       string   `json:"username,omitempty"`
	Group          string   `json:"group" validate:"required,oneof=designer outsourcer supplier"`
	Categories     []int64  `json:"categories,omitempty"`
	WorkExperience *int     `json:"work_experience,omitempty" validate:"omitempty,min=0,max=80"`
	Region         string   `json:"region,omitempty"`
	Segment        string   `json:"segment,omitempty"`
	Phone          string   `json:"phone" validate:"required,e164"`
	Rating         *float64 `json:"rating,omitempty"`
	Token          string   `json:"token,omitempty"`
}

// DisplayName возвращает имя для вывода в сообщениях.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.Name)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	return name
}
