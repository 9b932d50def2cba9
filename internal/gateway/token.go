package gateway

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryBuffer — запас до истечения access-токена, при котором он уже считается истёкшим.
const ExpiryBuffer = 60 * time.Second

var parser = jwt.NewParser()

// needsRefresh читает claim exp без проверки подписи: проверка — дело бэкенда,
// здесь это только подсказка «пора обновить».
// Нечитаемый токен считается истёкшим. Токен без exp используется как есть.
func needsRefresh(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}

	return !now.Before(exp.Add(-ExpiryBuffer))
}
