// Package leveling converts completed tasks into experience points and
// levels on a geometric curve.
package leveling

import (
	"math"

	"github.com/sandeepkv93/focusd/internal/model"
)

const (
	BaseTaskXP      = 10
	BaseLevelXP     = 100
	ScalingFactor   = 1.5
	SubtaskXP       = 5
	MaxSubtaskBonus = 25
)

var priorityMultipliers = map[model.Priority]float64{
	model.PriorityLowest: 1,
	model.PriorityMedium: 1.5,
	model.PriorityHigh:   2,
	model.PriorityUrgent: 3,
}

var intervalMultipliers = map[int]float64{
	5:  3,
	10: 2,
	15: 1.5,
	30: 1,
}

func PriorityMultiplier(p model.Priority) float64 {
	if m, ok := priorityMultipliers[p]; ok {
		return m
	}
	return 1
}

// IntervalMultiplier rewards shorter countdowns; unknown intervals get 1.
func IntervalMultiplier(minutes int) float64 {
	if m, ok := intervalMultipliers[minutes]; ok {
		return m
	}
	return 1
}

func SubtaskBonus(count int) int {
	return max(0, min(count*SubtaskXP, MaxSubtaskBonus))
}

// XPFor scores a task by priority, its shortest interval and its subtasks.
func XPFor(task model.Task) int {
	raw := BaseTaskXP*PriorityMultiplier(task.Priority)*IntervalMultiplier(task.MinInterval()) + float64(SubtaskBonus(task.SubtaskCount))
	return int(math.Floor(raw))
}

// XPRequiredFor is the XP needed to advance from level to level+1.
func XPRequiredFor(level int) int {
	if level < model.MinLevel {
		level = model.MinLevel
	}
	v := math.Floor(BaseLevelXP * math.Pow(ScalingFactor, float64(level-1)))
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int(v)
}

type LevelData struct {
	Level       int
	CurrentXP   int
	NextLevelXP int
}

// Progress is CurrentXP / NextLevelXP in [0, 1].
func (d LevelData) Progress() float64 {
	if d.NextLevelXP <= 0 {
		return 0
	}
	return min(1, float64(d.CurrentXP)/float64(d.NextLevelXP))
}

func LevelFromTotalXP(totalXP int) LevelData {
	level := model.MinLevel
	remainder := max(totalXP, 0)
	for level < model.MaxLevel && remainder >= XPRequiredFor(level) {
		remainder -= XPRequiredFor(level)
		level++
	}
	return LevelData{Level: level, CurrentXP: remainder, NextLevelXP: XPRequiredFor(level)}
}

type Award struct {
	Profile   model.LevelProfile
	Earned    int
	LeveledUp bool
	Data      LevelData
}

// AddXP credits task to profile and recomputes level data.
func AddXP(profile model.LevelProfile, task model.Task) Award {
	earned := XPFor(task)
	oldLevel := profile.Level
	data := LevelFromTotalXP(profile.TotalXP + earned)

	next := profile
	next.TotalXP += earned
	next.Level = data.Level
	next.CurrentXP = data.CurrentXP
	next.TotalTasksCompleted++
	return Award{
		Profile:   next,
		Earned:    earned,
		LeveledUp: data.Level > oldLevel,
		Data:      data,
	}
}
