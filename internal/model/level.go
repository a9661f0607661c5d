package model

import (
	"errors"
	"strings"
	"time"
)

const (
	MinLevel = 1
	MaxLevel = 100
)

type LevelProfile struct {
	OwnerID             string
	Level               int
	CurrentXP           int
	TotalXP             int
	TotalTasksCompleted int
	LastUpdated         time.Time
}

// NewLevelProfile returns the starting profile for an owner.
func NewLevelProfile(ownerID string, now time.Time) LevelProfile {
	return LevelProfile{OwnerID: ownerID, Level: MinLevel, LastUpdated: now}
}

func (p LevelProfile) Validate() error {
	if strings.TrimSpace(p.OwnerID) == "" {
		return errors.New("model: level profile owner_id is required")
	}
	if p.Level < MinLevel || p.Level > MaxLevel {
		return errors.New("model: level out of range")
	}
	if p.CurrentXP < 0 || p.TotalXP < 0 || p.TotalTasksCompleted < 0 {
		return errors.New("model: level counters must be >= 0")
	}
	return nil
}
