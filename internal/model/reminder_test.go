package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerStateValidateSuccess(t *testing.T) {
	start := time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)
	state := TimerState{
		Phase:           PhaseActive,
		StartTime:       start,
		DurationMinutes: 15,
		NotificationID:  "n-1",
		Latch:           LatchPending,
	}
	require.NoError(t, state.Validate())
}

func TestTimerStateValidateInvalidPhase(t *testing.T) {
	state := TimerState{Phase: Phase("Paused")}
	require.ErrorIs(t, state.Validate(), ErrInvalidPhase)
}

func TestTimerStateCompletedAtConsistency(t *testing.T) {
	now := time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)
	require.Error(t, TimerState{Phase: PhaseCompleted}.Validate())
	require.Error(t, TimerState{Phase: PhaseScheduled, CompletedAt: &now}.Validate())
	require.NoError(t, TimerState{Phase: PhaseExpired, CompletedAt: &now}.Validate())
}

func TestTimerStateIsStale(t *testing.T) {
	start := time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)
	state := TimerState{Phase: PhaseActive, StartTime: start, DurationMinutes: 5}

	assert.False(t, state.IsStale(start.Add(5*time.Minute)))
	assert.True(t, state.IsStale(start.Add(5*time.Minute+time.Millisecond)))

	state.Phase = PhaseScheduled
	assert.False(t, state.IsStale(start.Add(time.Hour)))
}

func TestPhaseIsValid(t *testing.T) {
	valid := []Phase{PhaseIdle, PhaseScheduled, PhaseActive, PhaseCompleted, PhaseExpired}
	for _, item := range valid {
		assert.True(t, item.IsValid(), "phase %q", item)
	}
	assert.False(t, Phase("other").IsValid())
}
