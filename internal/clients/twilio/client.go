package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coachflow-backend/internal/pkg/ctxutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/httpx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type Client interface {
	SendSMS(ctx context.Context, to string, body string) (*Message, error)
}

type Config struct {
	AccountSID          string
	AuthToken           string
	APIKey              string
	APIKeySecret        string
	BaseURL             string
	From                string
	MessagingServiceSID string
	StatusCallbackURL   string
	Timeout             time.Duration
	MaxRetries          int
}

func ConfigFromEnv() Config {
	return Config{
		AccountSID:          envutil.String("TWILIO_ACCOUNT_SID", ""),
		AuthToken:           envutil.String("TWILIO_AUTH_TOKEN", ""),
		APIKey:              envutil.String("TWILIO_API_KEY", ""),
		APIKeySecret:        envutil.String("TWILIO_API_KEY_SECRET", ""),
		BaseURL:             envutil.String("TWILIO_BASE_URL", ""),
		From:                envutil.String("TWILIO_FROM_NUMBER", ""),
		MessagingServiceSID: envutil.String("TWILIO_MESSAGING_SERVICE_SID", ""),
		StatusCallbackURL:   envutil.String("TWILIO_STATUS_CALLBACK_URL", ""),
		Timeout:             envutil.Seconds("TWILIO_TIMEOUT_SECONDS", 30),
		MaxRetries:          envutil.Int("TWILIO_MAX_RETRIES", 3),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	}
	if cfg.APIKey != "" {
		if cfg.APIKeySecret == "" {
			return nil, fmt.Errorf("missing TWILIO_API_KEY_SECRET (required when TWILIO_API_KEY is set)")
		}
	} else if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN (or provide TWILIO_API_KEY + TWILIO_API_KEY_SECRET)")
	}
	if cfg.From == "" && cfg.MessagingServiceSID == "" {
		return nil, fmt.Errorf("missing TWILIO_FROM_NUMBER or TWILIO_MESSAGING_SERVICE_SID")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &client{
		log:        log.With("client", "TwilioClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type Message struct {
	SID          string  `json:"sid,omitempty"`
	To           string  `json:"to,omitempty"`
	From         string  `json:"from,omitempty"`
	Status       string  `json:"status,omitempty"`
	NumSegments  string  `json:"num_segments,omitempty"`
	Price        *string `json:"price,omitempty"`
	ErrorCode    *int    `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Cost returns the absolute billed price. Twilio reports prices as negative
// strings and leaves them null until the carrier settles.
func (m *Message) Cost() float64 {
	if m == nil || m.Price == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*m.Price), 64)
	if err != nil {
		return 0
	}
	if v < 0 {
		v = -v
	}
	return v
}

func (c *client) SendSMS(ctx context.Context, to string, body string) (*Message, error) {
	to = strings.TrimSpace(to)
	body = strings.TrimSpace(body)
	if to == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	if body == "" {
		return nil, fmt.Errorf("twilio: Body required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if c.cfg.From != "" {
		form.Set("From", c.cfg.From)
	}
	if c.cfg.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", c.cfg.MessagingServiceSID)
	}
	if c.cfg.StatusCallbackURL != "" {
		form.Set("StatusCallback", c.cfg.StatusCallbackURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	return doForm[Message](ctx, c, endpoint, form)
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "twilio: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		if e.APIError.Code != 0 {
			return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
		}
		return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.APIError.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) basicAuth() (user, pass string) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, c.cfg.APIKeySecret
	}
	return c.cfg.AccountSID, c.cfg.AuthToken
}

func doForm[T any](ctx context.Context, c *client, urlStr string, form url.Values) (*T, error) {
	ctx = ctxutil.Default(ctx)
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		out, resp, err := doFormOnce[T](ctx, c, urlStr, form)
		if err == nil {
			return out, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Twilio request retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func doFormOnce[T any](ctx context.Context, c *client, urlStr string, form url.Values) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	u, p := c.basicAuth()
	req.SetBasicAuth(u, p)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("twilio decode error: %w", err)
	}
	return &out, resp, nil
}
