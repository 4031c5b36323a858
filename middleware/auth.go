package middleware

import (
	"context"
	"net/http"
	"strings"

	"elib/httperr"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const userIDKey contextKey = "userID"

// Authenticate verifies the bearer token against the shared secret and puts
// the token subject (user id) on the request context. Every failure mode gets
// the same 401; callers never learn which check tripped.
func Authenticate(jwtSecret string, development bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				httperr.Write(w, httperr.Authentication("Authorization Token is Required"), development)
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				httperr.Write(w, httperr.Authentication("Invalid Token"), development)
				return
			}
			token, err := jwt.ParseWithClaims(parts[1], &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				httperr.Write(w, httperr.Authentication("Invalid Token"), development)
				return
			}
			claims, ok := token.Claims.(*jwt.RegisteredClaims)
			if !ok {
				httperr.Write(w, httperr.Authentication("Invalid Token"), development)
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				httperr.Write(w, httperr.Authentication("Invalid Token"), development)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying id as the authenticated caller.
func WithUserID(ctx context.Context, id primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the authenticated caller id set by Authenticate.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return id, ok
}
