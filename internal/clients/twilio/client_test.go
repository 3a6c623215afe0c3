package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

func TestSendSMS_RetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		require.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "+31600000000", r.PostForm.Get("To"))
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued","price":"-0.0075"}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		BaseURL:    srv.URL,
		From:       "+3197000000",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)

	msg, err := c.SendSMS(context.Background(), "+31600000000", "Hallo")
	require.NoError(t, err)
	require.Equal(t, "SM1", msg.SID)
	require.InDelta(t, 0.0075, msg.Cost(), 1e-9)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSendSMS_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{AccountSID: "AC1", AuthToken: "t", BaseURL: srv.URL, From: "+1", MaxRetries: 3})
	require.NoError(t, err)

	_, err = c.SendSMS(context.Background(), "bad", "Hallo")
	require.Error(t, err)
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, 21211, he.APIError.Code)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNew_RequiresSender(t *testing.T) {
	_, err := New(logger.Nop(), Config{AccountSID: "AC1", AuthToken: "t"})
	require.Error(t, err)
}
