package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const cronSubject = "cron"

// CronAuth guards the cron trigger routes with an HS256 bearer token signed
// by CRON_SECRET. An empty secret disables the routes.
type CronAuth struct {
	log    *logger.Logger
	secret []byte
}

func NewCronAuth(log *logger.Logger, secret string) *CronAuth {
	if log == nil {
		log = logger.Nop()
	}
	return &CronAuth{log: log.With("middleware", "CronAuth"), secret: []byte(strings.TrimSpace(secret))}
}

func (a *CronAuth) Require() gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(cronSubject),
		jwt.WithLeeway(30*time.Second),
	)
	return func(c *gin.Context) {
		if len(a.secret) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": gin.H{"message": "cron trigger disabled", "code": "cron_disabled"},
			})
			return
		}
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		_, err := parser.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			return a.secret, nil
		})
		if err != nil {
			a.log.Warn("Rejected cron token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

// SignCronToken mints a token the guard accepts until now+ttl.
func SignCronToken(secret string, ttl time.Duration, now time.Time) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("cron secret is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:   cronSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
