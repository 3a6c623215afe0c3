package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coachflow-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:     uuid.New(),
		Email:  email,
		Name:   "Sam Jansen",
		Status: types.UserStatusActive,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedUserCreatedAt seeds a user whose account age is fixed by createdAt.
func SeedUserCreatedAt(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, createdAt time.Time) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, email)
	if err := tx.WithContext(ctx).Model(&types.User{}).Where("id = ?", u.ID).Update("created_at", createdAt.UTC()).Error; err != nil {
		tb.Fatalf("set created_at: %v", err)
	}
	u.CreatedAt = createdAt.UTC()
	return u
}

func SeedPreferences(tb testing.TB, ctx context.Context, tx *gorm.DB, p *types.CommunicationPreference) *types.CommunicationPreference {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed preferences: %v", err)
	}
	return p
}

// SeedSequence creates an active sequence with the given steps numbered from 1.
func SeedSequence(tb testing.TB, ctx context.Context, tx *gorm.DB, name, trigger string, steps ...types.SequenceStep) *types.Sequence {
	tb.Helper()
	seq := &types.Sequence{Name: name, TriggerEvent: trigger, Active: true}
	if err := tx.WithContext(ctx).Create(seq).Error; err != nil {
		tb.Fatalf("seed sequence: %v", err)
	}
	for i := range steps {
		steps[i].SequenceID = seq.ID
		steps[i].StepNumber = i + 1
		if steps[i].Channel == "" {
			steps[i].Channel = types.ChannelInApp
		}
		if err := tx.WithContext(ctx).Create(&steps[i]).Error; err != nil {
			tb.Fatalf("seed sequence step: %v", err)
		}
	}
	seq.Steps = steps
	return seq
}
