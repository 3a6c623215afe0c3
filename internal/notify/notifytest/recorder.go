package notifytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/coachflow-backend/internal/notify"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
)

type Sent struct {
	Channel     string
	Destination string
	Content     notify.Content
}

// Recorder is an in-memory Notifier. Failing channels return FailErr.
type Recorder struct {
	mu      sync.Mutex
	sent    []Sent
	Failing map[string]bool
	FailErr error
}

func NewRecorder() *Recorder {
	return &Recorder{Failing: map[string]bool{}}
}

func (r *Recorder) Send(ctx context.Context, channel, destination string, content notify.Content) (notify.SendResult, error) {
	if destination == "" {
		return notify.SendResult{}, fmt.Errorf("%s: %w", channel, pkgerrors.ErrChannelUnavailable)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Failing[channel] {
		err := r.FailErr
		if err == nil {
			err = fmt.Errorf("%s provider down", channel)
		}
		return notify.SendResult{}, err
	}
	r.sent = append(r.sent, Sent{Channel: channel, Destination: destination, Content: content})
	return notify.SendResult{Success: true, ProviderID: fmt.Sprintf("fake-%d", len(r.sent))}, nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentOfType returns sends whose content type equals typ.
func (r *Recorder) SentOfType(typ string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Content.Type == typ {
			out = append(out, s)
		}
	}
	return out
}
