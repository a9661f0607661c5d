package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/focusd/internal/commands"
	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/reminder"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
}

func (m *Model) closePalette() {
	m.Palette = CommandPaletteState{}
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	handlers := m.commandHandlers()
	ctx := m.deps.Context
	return m, func() tea.Msg {
		res, err := commands.Execute(ctx, cmd, handlers)
		return commandResultMsg{Text: res.Message, Err: err}
	}
}

func (m Model) resolve(ref string) (model.Task, error) {
	task, ok := m.deps.View.Find(ref)
	if !ok {
		return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no single task matches %q", ref)}
	}
	return task, nil
}

// commandHandlers binds palette commands to the reminder engine. Handlers
// run inside a tea.Cmd, off the UI goroutine.
func (m Model) commandHandlers() commands.Handlers {
	engine, levels, owner := m.deps.Engine, m.deps.Levels, m.deps.OwnerID
	return commands.Handlers{
		Add: func(ctx context.Context, a commands.AddArgs) (commands.Result, error) {
			task, err := engine.CreateTask(ctx, reminder.NewTask{
				OwnerID:          owner,
				Title:            a.Title,
				Priority:         a.Priority,
				AllowedIntervals: a.Intervals,
			})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added %s: %s", shortID(task.ID), task.Title)}, nil
		},
		Done: func(ctx context.Context, a commands.DoneArgs) (commands.Result, error) {
			task, err := m.resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if err := engine.CompleteTask(ctx, task.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("done: %s", task.Title)}, nil
		},
		Snooze: func(ctx context.Context, a commands.SnoozeArgs) (commands.Result, error) {
			task, err := m.resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if err := engine.RescheduleTaskNotification(ctx, task.ID, a.IntervalIndex); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("%s: again in %d min", task.Title, task.IntervalAt(a.IntervalIndex))}, nil
		},
		Edit: func(ctx context.Context, a commands.EditArgs) (commands.Result, error) {
			task, err := m.resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			patch, err := patchFor(a)
			if err != nil {
				return commands.Result{}, err
			}
			if _, err := engine.UpdateTask(ctx, task.ID, patch); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("updated %s of %s", a.Field, task.Title)}, nil
		},
		Delete: func(ctx context.Context, a commands.DeleteArgs) (commands.Result, error) {
			task, err := m.resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if err := engine.DeleteTask(ctx, task.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted: %s", task.Title)}, nil
		},
		Level: func(ctx context.Context) (commands.Result, error) {
			if levels == nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeHandlerMissing, Message: "leveling not configured"}
			}
			data, err := levels.Data(ctx, owner)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("level %d, %d/%d xp", data.Level, data.CurrentXP, data.NextLevelXP)}, nil
		},
	}
}

func patchFor(a commands.EditArgs) (reminder.TaskPatch, error) {
	var patch reminder.TaskPatch
	switch a.Field {
	case commands.FieldTitle:
		patch.Title = &a.Value
	case commands.FieldPriority:
		p, err := model.ParsePriority(a.Value)
		if err != nil {
			return patch, err
		}
		patch.Priority = &p
	case commands.FieldIntervals:
		intervals, err := commands.ParseIntervals(a.Value)
		if err != nil {
			return patch, err
		}
		patch.AllowedIntervals = intervals
	case commands.FieldDuration, commands.FieldSubtasks:
		n, err := strconv.Atoi(strings.TrimSuffix(a.Value, "m"))
		if err != nil {
			return patch, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%s must be a number", a.Field)}
		}
		if a.Field == commands.FieldDuration {
			patch.DurationMinutes = &n
		} else {
			patch.SubtaskCount = &n
		}
	}
	return patch, nil
}
