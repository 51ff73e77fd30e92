package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/response"
)

// UserContextKey — ключ идентификатора пользователя в gin.Context.
const UserContextKey = "userID"

// Identity — проверенный пользователь.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Verifier проверяет bearer-токен и возвращает стабильный id пользователя.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier проверяет HMAC-подписанные JWT.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenStr string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, apperr.Unauthenticated("JWT secret not configured")
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Identity{}, apperr.Unauthenticated("Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, apperr.Unauthenticated("Invalid token claims")
	}

	id := Identity{}
	id.UserID, _ = claims["sub"].(string)
	if id.UserID == "" {
		id.UserID, _ = claims["uid"].(string)
	}
	if id.UserID == "" {
		return Identity{}, apperr.Unauthenticated("Token has no subject")
	}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	return id, nil
}

// Issue подписывает токен; используется локально и в тестах.
func (v *JWTVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// RequireAuth отклоняет запросы без валидного токена (401).
func RequireAuth(v Verifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearer(c)
		if !ok {
			response.Fail(c, log, apperr.Unauthenticated("No authorization token provided"), nil)
			return
		}
		id, err := v.Verify(c.Request.Context(), tok)
		if err != nil {
			response.Fail(c, log, err, nil)
			return
		}
		c.Set(UserContextKey, id.UserID)
		c.Next()
	}
}

// OptionalAuth проставляет пользователя, если токен валиден, и пропускает запрос в любом случае.
func OptionalAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearer(c); ok {
			if id, err := v.Verify(c.Request.Context(), tok); err == nil {
				c.Set(UserContextKey, id.UserID)
			}
		}
		c.Next()
	}
}

// UserID достаёт id пользователя из контекста.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// MustUserID — для хендлеров за RequireAuth.
func MustUserID(c *gin.Context) (string, error) {
	id, ok := UserID(c)
	if !ok {
		return "", apperr.Unauthenticated("Unauthorized")
	}
	return id, nil
}
