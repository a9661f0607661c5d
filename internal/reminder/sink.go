package reminder

import (
	"context"
	"log/slog"

	"github.com/sandeepkv93/focusd/internal/leveling"
	"github.com/sandeepkv93/focusd/internal/model"
)

type PromptReason string

const (
	PromptDelivered PromptReason = "delivered"
	PromptCountdown PromptReason = "countdown"
	PromptRecovered PromptReason = "recovered"
)

// ReminderPrompt asks the UI to show the reminder modal for a task.
type ReminderPrompt struct {
	CurrentReminderTask model.Task
	ShowReminderModal   bool
	Reason              PromptReason
}

type LevelUpdate struct {
	OwnerID   string
	LevelData leveling.LevelData
	Earned    int
	LeveledUp bool
}

// Sink is the UI side of the engine.
type Sink interface {
	ShowReminder(ctx context.Context, p ReminderPrompt)
	ShowLevel(ctx context.Context, u LevelUpdate)
}

type NopSink struct{}

func (NopSink) ShowReminder(context.Context, ReminderPrompt) {}
func (NopSink) ShowLevel(context.Context, LevelUpdate)       {}

// UIEvent carries exactly one of Prompt or Level.
type UIEvent struct {
	Prompt *ReminderPrompt
	Level  *LevelUpdate
}

// ChannelSink queues UI events for a consumer such as the terminal UI.
// Events are dropped with a warning when the buffer is full.
type ChannelSink struct {
	ch     chan UIEvent
	logger *slog.Logger
}

func NewChannelSink(buffer int, logger *slog.Logger) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelSink{ch: make(chan UIEvent, buffer), logger: logger}
}

func (s *ChannelSink) C() <-chan UIEvent {
	return s.ch
}

func (s *ChannelSink) ShowReminder(ctx context.Context, p ReminderPrompt) {
	s.push(ctx, UIEvent{Prompt: &p})
}

func (s *ChannelSink) ShowLevel(ctx context.Context, u LevelUpdate) {
	s.push(ctx, UIEvent{Level: &u})
}

func (s *ChannelSink) push(ctx context.Context, ev UIEvent) {
	select {
	case s.ch <- ev:
	default:
		s.logger.WarnContext(ctx, "ui event dropped: buffer full")
	}
}
