package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func guarded(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/cron/:cadence", NewCronAuth(nil, secret).Require(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func call(r *gin.Engine, token string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/cron/daily", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestCronAuth(t *testing.T) {
	r := guarded("s3cret")
	now := time.Now()

	valid, err := SignCronToken("s3cret", time.Minute, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if code := call(r, valid); code != http.StatusOK {
		t.Fatalf("valid token: got %d", code)
	}

	wrongKey, _ := SignCronToken("other", time.Minute, now)
	expired, _ := SignCronToken("s3cret", time.Minute, now.Add(-time.Hour))
	for name, tok := range map[string]string{"missing": "", "wrong key": wrongKey, "expired": expired, "garbage": "abc.def.ghi"} {
		if code := call(r, tok); code != http.StatusUnauthorized {
			t.Fatalf("%s: got %d want 401", name, code)
		}
	}
}

func TestCronAuthDisabledWithoutSecret(t *testing.T) {
	if code := call(guarded(""), "anything"); code != http.StatusServiceUnavailable {
		t.Fatalf("got %d want 503", code)
	}
	if _, err := SignCronToken(" ", time.Minute, time.Now()); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
