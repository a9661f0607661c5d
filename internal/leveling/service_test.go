package leveling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/focusd/internal/model"
)

type memoryProfiles struct {
	profiles map[string]model.LevelProfile
	saveErr  error
}

func (m *memoryProfiles) GetProfile(_ context.Context, ownerID string) (model.LevelProfile, error) {
	p, ok := m.profiles[ownerID]
	if !ok {
		return model.LevelProfile{}, model.ErrNotFound
	}
	return p, nil
}

func (m *memoryProfiles) SaveProfile(_ context.Context, p model.LevelProfile) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.profiles[p.OwnerID] = p
	return nil
}

func TestServiceCreditCreatesAndAccumulates(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	store := &memoryProfiles{profiles: map[string]model.LevelProfile{}}
	svc := NewService(store, func() time.Time { return now })
	ctx := context.Background()

	task := model.Task{OwnerID: "owner-1", Priority: model.PriorityUrgent, AllowedIntervals: []int{5}, SubtaskCount: 2}
	award, err := svc.Credit(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, 100, award.Earned)
	assert.True(t, award.LeveledUp)
	assert.Equal(t, now, award.Profile.LastUpdated)

	award, err = svc.Credit(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, 200, award.Profile.TotalXP)
	assert.Equal(t, 2, award.Profile.TotalTasksCompleted)

	data, err := svc.Data(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, LevelData{Level: 2, CurrentXP: 100, NextLevelXP: 150}, data)
}

func TestServiceCreditSaveFailure(t *testing.T) {
	store := &memoryProfiles{profiles: map[string]model.LevelProfile{}, saveErr: errors.New("readonly")}
	svc := NewService(store, nil)

	_, err := svc.Credit(context.Background(), model.Task{OwnerID: "owner-1", Priority: model.PriorityHigh})
	require.Error(t, err)
	assert.Empty(t, store.profiles)
}

func TestServiceProfileDefaultsToLevelOne(t *testing.T) {
	svc := NewService(&memoryProfiles{profiles: map[string]model.LevelProfile{}}, nil)
	p, err := svc.Profile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, "nobody", p.OwnerID)
}
