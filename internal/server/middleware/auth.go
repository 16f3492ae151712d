package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Auth authenticates requests from the surrounding application. Session
// issuance lives there, not here: this service only validates a Bearer JWT
// signed with the shared secret, or an X-API-Key belonging to a registered
// service principal. The actor identity and role land in the request
// context, along with the caller's IP and user agent for the audit record.
func Auth(jwtSecret string, serviceKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Try Bearer token first.
			if tok := extractBearer(r); tok != "" {
				ctx, ok := authenticateJWT(r.Context(), tok, jwtSecret)
				if ok {
					next.ServeHTTP(w, r.WithContext(describeCaller(ctx, r)))
					return
				}
			}

			// Try API key.
			if key := r.Header.Get("X-API-Key"); key != "" {
				ctx, ok := authenticateAPIKey(r.Context(), key, serviceKeys)
				if ok {
					next.ServeHTTP(w, r.WithContext(describeCaller(ctx, r)))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}

func authenticateJWT(ctx context.Context, tokenStr, secret string) (context.Context, bool) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return ctx, false
	}

	if claims.Subject == "" {
		return ctx, false
	}

	role := claims.Role
	if role == "" {
		role = RoleViewer
	}

	ctx = context.WithValue(ctx, ContextKeyActor, claims.Subject)
	ctx = context.WithValue(ctx, ContextKeyRole, role)
	return ctx, true
}

// authenticateAPIKey matches the SHA-256 of the presented key against the
// configured service principals (hash -> principal name). Raw keys are never
// stored or compared directly.
func authenticateAPIKey(ctx context.Context, rawKey string, serviceKeys map[string]string) (context.Context, bool) {
	if len(serviceKeys) == 0 {
		return ctx, false
	}

	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])

	name, ok := serviceKeys[keyHash]
	if !ok {
		return ctx, false
	}

	ctx = context.WithValue(ctx, ContextKeyActor, name)
	ctx = context.WithValue(ctx, ContextKeyRole, RoleService)
	return ctx, true
}

// describeCaller records transport metadata used to annotate audit entries.
// RealIP middleware has already normalized RemoteAddr.
func describeCaller(ctx context.Context, r *http.Request) context.Context {
	ctx = context.WithValue(ctx, ContextKeyRemoteIP, r.RemoteAddr)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, r.UserAgent())
	return ctx
}
