package update

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/reminder"
	"github.com/sandeepkv93/focusd/internal/timer"
	"github.com/sandeepkv93/focusd/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChangeCmd(m.changes), tickCmd(m.deps.Tick), m.loadLevelCmd()}
	if m.deps.Events != nil {
		cmds = append(cmds, waitForUIEventCmd(m.deps.Events))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Modal != nil {
			return m.handleModalKey(typed)
		}
		if m.Palette.Active {
			if typed.String() == "?" {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed)
		}
		return m.handleListKey(typed)
	case TasksChangedMsg:
		m.refreshTasks()
		return m, waitForChangeCmd(m.changes)
	case UIEventMsg:
		m.applyUIEvent(typed.Event)
		if m.deps.Events != nil {
			return m, waitForUIEventCmd(m.deps.Events)
		}
		return m, nil
	case TickMsg:
		cmd := m.onTick(time.Time(typed))
		return m, tea.Batch(tickCmd(m.deps.Tick), cmd)
	case commandResultMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		} else if typed.Text != "" {
			m.Status = StatusBar{Text: typed.Text}
		}
		m.refreshTasks()
		return m, nil
	case levelLoadedMsg:
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Level.Data = typed.Data
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Palette):
		m.Palette = CommandPaletteState{Active: true}
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command palette active"}
		return m, nil
	case key.Matches(msg, m.Keys.Help):
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < len(m.Tasks)-1 {
			m.Cursor++
		}
		return m, nil
	}

	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.Keys.Done):
		cmd := m.completeCmd(task)
		return m, cmd
	case key.Matches(msg, m.Keys.Snooze):
		cmd := m.rescheduleCmd(task, 0)
		return m, cmd
	case key.Matches(msg, m.Keys.Delete):
		predicted := task.Clone()
		predicted.Status = model.TaskStatusDeleted
		m.deps.View.Predict(predicted)
		m.refreshTasks()
		return m, m.run(func(ctx context.Context) (string, error) {
			if err := m.deps.Engine.DeleteTask(ctx, task.ID); err != nil {
				return "", err
			}
			return fmt.Sprintf("deleted: %s", task.Title), nil
		})
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task := m.Modal.CurrentReminderTask
	switch s := msg.String(); {
	case key.Matches(msg, m.Keys.Complete):
		m.Modal = nil
		cmd := m.completeCmd(task)
		return m, cmd
	case key.Matches(msg, m.Keys.Dismiss):
		m.Modal = nil
		m.Status = StatusBar{Text: "reminder dismissed"}
		return m, nil
	case len(s) == 1 && s[0] >= '1' && s[0] <= '9':
		index := int(s[0] - '1')
		if index >= len(task.AllowedIntervals) {
			return m, nil
		}
		m.Modal = nil
		cmd := m.rescheduleCmd(task, index)
		return m, cmd
	case key.Matches(msg, m.Keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) completeCmd(task model.Task) tea.Cmd {
	predicted := task.Clone()
	predicted.Status = model.TaskStatusCompleted
	m.deps.View.Predict(predicted)
	m.refreshTasks()
	engine := m.deps.Engine
	return m.run(func(ctx context.Context) (string, error) {
		if err := engine.HandleUserResponse(ctx, notify.UserResponse{
			NotificationID: task.Timer.NotificationID,
			TaskID:         task.ID,
			Action:         notify.ActionComplete,
		}); err != nil {
			return "", err
		}
		return fmt.Sprintf("done: %s", task.Title), nil
	})
}

func (m *Model) rescheduleCmd(task model.Task, index int) tea.Cmd {
	minutes := task.IntervalAt(index)
	engine := m.deps.Engine
	return m.run(func(ctx context.Context) (string, error) {
		if err := engine.RescheduleTaskNotification(ctx, task.ID, index); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: again in %d min", task.Title, minutes), nil
	})
}

// run executes an engine call off the UI goroutine.
func (m Model) run(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.deps.Context
	return func() tea.Msg {
		text, err := fn(ctx)
		return commandResultMsg{Text: text, Err: err}
	}
}

func (m *Model) applyUIEvent(ev reminder.UIEvent) {
	if ev.Prompt != nil && ev.Prompt.ShowReminderModal {
		prompt := *ev.Prompt
		m.Modal = &prompt
		m.Status = StatusBar{Text: fmt.Sprintf("reminder: %s", prompt.CurrentReminderTask.Title)}
	}
	if ev.Level != nil {
		m.Level = LevelState{Data: ev.Level.LevelData, LastEarned: ev.Level.Earned, LeveledUp: ev.Level.LeveledUp}
		text := fmt.Sprintf("+%d xp", ev.Level.Earned)
		if ev.Level.LeveledUp {
			text = fmt.Sprintf("%s, reached level %d", text, ev.Level.LevelData.Level)
		}
		m.Status = StatusBar{Text: text}
	}
}

func (m *Model) refreshTasks() {
	m.Tasks = m.deps.View.Tasks()
	if m.Cursor >= len(m.Tasks) {
		m.Cursor = len(m.Tasks) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	m.sampleCountdown(m.deps.Now())
}

func (m *Model) sampleCountdown(now time.Time) (model.Task, timer.Sample, bool) {
	admitted, ok := m.deps.View.Admitted()
	if !ok {
		m.Countdown = CountdownState{}
		return model.Task{}, timer.Sample{}, false
	}
	sample := timer.SampleAt(admitted.Timer, now)
	m.Countdown = CountdownState{
		TaskID:         admitted.ID,
		NotificationID: admitted.Timer.NotificationID,
		Title:          admitted.Title,
		Priority:       admitted.Priority,
		Remaining:      sample.Remaining,
		Progress:       timer.Progress(admitted.Timer, now),
		Done:           sample.Done,
	}
	return admitted, sample, true
}

// onTick samples the admitted task's countdown and returns the expiry
// signal command once per notification.
func (m *Model) onTick(now time.Time) tea.Cmd {
	admitted, sample, ok := m.sampleCountdown(now)
	if !ok || !sample.Done || admitted.Timer.Latch != model.LatchPending || m.signalled[admitted.Timer.NotificationID] {
		return nil
	}
	m.signalled[admitted.Timer.NotificationID] = true
	engine, ctx, id := m.deps.Engine, m.deps.Context, admitted.ID
	return func() tea.Msg {
		if err := engine.HandleExpirySignal(ctx, id); err != nil {
			return AppErrorMsg{Err: err}
		}
		return nil
	}
}

func (m Model) selected() (model.Task, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Tasks) {
		return model.Task{}, false
	}
	return m.Tasks[m.Cursor], true
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	modal := ""
	if m.Modal != nil {
		t := m.Modal.CurrentReminderTask
		modal = views.RenderReminderModal(views.ReminderModalData{
			Title:           t.Title,
			Priority:        string(t.Priority),
			Reason:          string(m.Modal.Reason),
			Intervals:       t.AllowedIntervals,
			RescheduleCount: t.RescheduleCount,
		})
	}

	right := views.RenderCountdownPanel(views.CountdownData{
		TaskTitle:    m.Countdown.Title,
		Priority:     string(m.Countdown.Priority),
		Timer:        formatDuration(int(m.Countdown.Remaining / time.Second)),
		ProgressView: m.countdownBar.ViewAs(m.Countdown.Progress),
		Done:         m.Countdown.Done,
	})
	if lvl := m.renderLevel(); lvl != "" {
		right += "\n\n" + lvl
	}
	if m.Palette.Active {
		right += "\n\n" + views.RenderCommandPalette(true, m.commandInput.View())
	}
	right += m.renderHelpIfVisible()

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("focusd | %d pending", m.pendingCount()),
		LeftPane:   views.RenderTaskPanel(views.TaskPanelData{Rows: m.taskRows()}),
		RightPane:  right,
		StatusLine: m.Status.Text,
		IsError:    m.Status.IsError,
		Modal:      modal,
		Footer:     m.helpModel.ShortHelpView(m.shortBindings()),
	})
}

func (m Model) renderLevel() string {
	return views.RenderLevelPanel(views.LevelPanelData{
		Level:       m.Level.Data.Level,
		CurrentXP:   m.Level.Data.CurrentXP,
		NextLevelXP: m.Level.Data.NextLevelXP,
		LastEarned:  m.Level.LastEarned,
		LeveledUp:   m.Level.LeveledUp,
	})
}

func (m Model) taskRows() []views.TaskRowData {
	rows := make([]views.TaskRowData, 0, len(m.Tasks))
	for i, t := range m.Tasks {
		rows = append(rows, views.TaskRowData{
			ShortID:   shortID(t.ID),
			Title:     t.Title,
			Priority:  string(t.Priority),
			Status:    string(t.Status),
			Phase:     string(t.Timer.Phase),
			Intervals: t.AllowedIntervals,
			Admitted:  t.IsAdmitted(),
			Selected:  i == m.Cursor,
		})
	}
	return rows
}

func (m Model) pendingCount() int {
	n := 0
	for _, t := range m.Tasks {
		if t.IsPending() {
			n++
		}
	}
	return n
}

func (m Model) loadLevelCmd() tea.Cmd {
	if m.deps.Levels == nil {
		return nil
	}
	levels, ctx, owner := m.deps.Levels, m.deps.Context, m.deps.OwnerID
	return func() tea.Msg {
		data, err := levels.Data(ctx, owner)
		return levelLoadedMsg{Data: data, Err: err}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func waitForChangeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return TasksChangedMsg{}
	}
}

func waitForUIEventCmd(ch <-chan reminder.UIEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return UIEventMsg{Event: ev}
	}
}
