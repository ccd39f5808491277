package auth

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// TokenMiddleware enforces a token in header X-API-Token. The expected value
// is a bcrypt hash so the plain token never has to live in the environment.
func TokenMiddleware(expectedHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedHash == "" {
				http.Error(w, "api token not configured", http.StatusUnauthorized)
				return
			}
			token := r.Header.Get("X-API-Token")
			if token == "" || bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(token)) != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashToken produces the value expected by TokenMiddleware.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
