// Входные/выходные модели REST, зеркалят контракт сервиса анализа иснадов.
package models

type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email"     validate:"required"`
	Username string `json:"username"  validate:"required"`
	Password string `json:"password"  validate:"required"`
	FullName string `json:"full_name" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair — пара токенов с временем жизни access в секундах.
// Cookie refresh живёт RefreshMaxAge() = 4 × ExpiresIn.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshLifetimeFactor — во сколько раз refresh-cookie живёт дольше access-cookie.
const RefreshLifetimeFactor = 4

func (p TokenPair) AccessMaxAge() int { return int(p.ExpiresIn) }

func (p TokenPair) RefreshMaxAge() int { return int(p.ExpiresIn) * RefreshLifetimeFactor }

// AuthResponse — ответ бэкенда на login/register/refresh. User на refresh может отсутствовать.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}

func (a *AuthResponse) Pair() TokenPair {
	return TokenPair{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		ExpiresIn:    a.ExpiresIn,
	}
}

// UserEnvelope — ответ login/register/me: только профиль, без токенов.
type UserEnvelope struct {
	User    *User  `json:"user"`
	Message string `json:"message,omitempty"`
}

// MessageResponse — ответ без полезной нагрузки.
type MessageResponse struct {
	Message string `json:"message"`
}
