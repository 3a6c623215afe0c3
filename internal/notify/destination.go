package notify

import (
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/messaging"
)

// Destination resolves the address for channel from the user record.
func Destination(u *types.User, channel string) string {
	if u == nil {
		return ""
	}
	switch channel {
	case messaging.ChannelInApp:
		return u.ID.String()
	case messaging.ChannelEmail:
		return u.Email
	case messaging.ChannelSMS:
		return u.Phone
	}
	return ""
}

// Allowed reports whether prefs permit delivery on channel. Missing prefs
// allow in-app and email; sms is opt-in.
func Allowed(p *types.CommunicationPreference, channel string) bool {
	if p == nil {
		return channel != messaging.ChannelSMS
	}
	if p.Unsubscribed && channel != messaging.ChannelInApp {
		return false
	}
	switch channel {
	case messaging.ChannelInApp:
		return p.InAppEnabled
	case messaging.ChannelEmail:
		return p.EmailEnabled
	case messaging.ChannelSMS:
		return p.SMSEnabled
	}
	return false
}
