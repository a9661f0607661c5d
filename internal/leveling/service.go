package leveling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sandeepkv93/focusd/internal/model"
)

// ProfileStore persists level profiles. GetProfile returns model.ErrNotFound
// for owners without a profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, ownerID string) (model.LevelProfile, error)
	SaveProfile(ctx context.Context, p model.LevelProfile) error
}

type Service struct {
	store   ProfileStore
	now     func() time.Time
	awarded metric.Int64Counter
}

func NewService(store ProfileStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	awarded, _ := otel.Meter("github.com/sandeepkv93/focusd/leveling").Int64Counter(
		"focusd.leveling.xp_awarded",
		metric.WithDescription("Experience points credited for completed tasks"),
	)
	return &Service{store: store, now: now, awarded: awarded}
}

// Profile returns the stored profile or a fresh level-1 profile.
func (s *Service) Profile(ctx context.Context, ownerID string) (model.LevelProfile, error) {
	p, err := s.store.GetProfile(ctx, ownerID)
	if errors.Is(err, model.ErrNotFound) {
		return model.NewLevelProfile(ownerID, s.now()), nil
	}
	if err != nil {
		return model.LevelProfile{}, fmt.Errorf("leveling: load profile %s: %w", ownerID, err)
	}
	return p, nil
}

// Credit applies AddXP for a completed task and saves the result.
func (s *Service) Credit(ctx context.Context, task model.Task) (Award, error) {
	profile, err := s.Profile(ctx, task.OwnerID)
	if err != nil {
		return Award{}, err
	}
	award := AddXP(profile, task)
	award.Profile.LastUpdated = s.now()
	if err := s.store.SaveProfile(ctx, award.Profile); err != nil {
		return Award{}, fmt.Errorf("leveling: save profile %s: %w", task.OwnerID, err)
	}
	if s.awarded != nil {
		s.awarded.Add(ctx, int64(award.Earned), metric.WithAttributes(attribute.String("priority", string(task.Priority))))
	}
	return award, nil
}

// Data returns display data for an owner.
func (s *Service) Data(ctx context.Context, ownerID string) (LevelData, error) {
	p, err := s.Profile(ctx, ownerID)
	if err != nil {
		return LevelData{}, err
	}
	return LevelFromTotalXP(p.TotalXP), nil
}
