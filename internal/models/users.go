package models

// Профиль пользователя (только чтение).
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// UserSession — одно устройство/браузер пользователя по данным бэкенда.
type UserSession struct {
	ID         string `json:"id"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at"`
	IsCurrent  bool   `json:"is_current"`
}

type SessionsResponse struct {
	Sessions         []UserSession `json:"sessions"`
	CurrentSessionID string        `json:"current_session_id"`
}
