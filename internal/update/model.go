// Package update is the bubbletea front end. It renders the reconciled task
// list and the admitted task's countdown, shows the reminder modal and turns
// keys and palette commands into reminder engine calls.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/focusd/internal/leveling"
	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/reminder"
	"github.com/sandeepkv93/focusd/internal/tasklist"
)

// Engine is the part of reminder.Controller driven by the UI.
type Engine interface {
	CreateTask(ctx context.Context, in reminder.NewTask) (model.Task, error)
	CompleteTask(ctx context.Context, taskID string) error
	RescheduleTaskNotification(ctx context.Context, taskID string, intervalIndex int) error
	UpdateTask(ctx context.Context, taskID string, patch reminder.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	HandleExpirySignal(ctx context.Context, taskID string) error
	HandleUserResponse(ctx context.Context, r notify.UserResponse) error
}

// LevelReader loads level display data.
type LevelReader interface {
	Data(ctx context.Context, ownerID string) (leveling.LevelData, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type LevelState struct {
	Data       leveling.LevelData
	LastEarned int
	LeveledUp  bool
}

type Deps struct {
	Context context.Context
	Engine  Engine
	Levels  LevelReader
	View    *tasklist.View
	// Events carries prompts and level updates from reminder.ChannelSink.
	Events  <-chan reminder.UIEvent
	OwnerID string
	Tick    time.Duration
	Now     func() time.Time
}

type Model struct {
	deps Deps

	Tasks   []model.Task
	Cursor  int
	Palette CommandPaletteState
	// Modal is the reminder currently asking for a decision.
	Modal       *reminder.ReminderPrompt
	Level       LevelState
	Countdown   CountdownState
	HelpVisible bool
	Status      StatusBar
	Keys        KeyMap
	Quitting    bool
	LastError   error

	// Expiry signals already sent, keyed by notification id.
	signalled map[string]bool
	changes   chan struct{}

	commandInput textinput.Model
	countdownBar progress.Model
	helpModel    help.Model
}

type CountdownState struct {
	TaskID         string
	NotificationID string
	Title          string
	Priority       model.Priority
	Remaining      time.Duration
	Progress       float64
	Done           bool
}

type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Done     key.Binding
	Snooze   key.Binding
	Delete   key.Binding
	Palette  key.Binding
	Help     key.Binding
	Quit     key.Binding
	Complete key.Binding
	Dismiss  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "move up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "move down")),
		Done:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "mark selected done")),
		Snooze:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "restart selected reminder")),
		Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete selected")),
		Palette:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "command palette")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "done (reminder)")),
		Dismiss:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss reminder")),
	}
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// TasksChangedMsg reports a new task view revision.
type TasksChangedMsg struct{}

// UIEventMsg wraps an event from the reminder engine.
type UIEventMsg struct {
	Event reminder.UIEvent
}

type TickMsg time.Time

type commandResultMsg struct {
	Text string
	Err  error
}

type levelLoadedMsg struct {
	Data leveling.LevelData
	Err  error
}

func NewModel(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Tick <= 0 {
		deps.Tick = time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.View == nil {
		deps.View = tasklist.New()
	}
	m := Model{
		deps:      deps,
		Keys:      DefaultKeyMap(),
		signalled: make(map[string]bool),
		changes:   make(chan struct{}, 1),
	}
	changes := m.changes
	deps.View.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	m.initBubbleComponents()
	m.refreshTasks()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 56
	m.commandInput.Placeholder = "add high 5,15 write report"

	m.countdownBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(34))
	m.helpModel = help.New()
}
