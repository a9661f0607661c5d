package views

import (
	"fmt"
	"strings"
)

type TaskRowData struct {
	ShortID   string
	Title     string
	Priority  string
	Status    string
	Phase     string
	Intervals []int
	Admitted  bool
	Selected  bool
}

type TaskPanelData struct {
	Rows []TaskRowData
}

type CountdownData struct {
	TaskTitle    string
	Priority     string
	Timer        string
	ProgressView string
	Done         bool
}

type ReminderModalData struct {
	Title           string
	Priority        string
	Reason          string
	Intervals       []int
	RescheduleCount int
}

type LevelPanelData struct {
	Level       int
	CurrentXP   int
	NextLevelXP int
	LastEarned  int
	LeveledUp   bool
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString("tasks:\n")
	if len(data.Rows) == 0 {
		b.WriteString("  (none, press / and type: add <priority> <minutes> <title>)")
		return b.String()
	}
	for _, row := range data.Rows {
		cursor := " "
		if row.Selected {
			cursor = ">"
		}
		marker := " "
		if row.Admitted {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%s %s %s %s", cursor, marker, row.ShortID, priorityBadge(row.Priority), row.Title)
		if row.Status != "Pending" {
			fmt.Fprintf(&b, " (%s)", strings.ToLower(row.Status))
		} else if row.Phase != "" && row.Phase != "Idle" {
			fmt.Fprintf(&b, " [%s]", strings.ToLower(row.Phase))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCountdownPanel(data CountdownData) string {
	if data.TaskTitle == "" {
		return "reminder:\n(no active reminder)"
	}
	var b strings.Builder
	b.WriteString("reminder:\n")
	fmt.Fprintf(&b, "task: %s %s\n", priorityBadge(data.Priority), data.TaskTitle)
	fmt.Fprintf(&b, "left: %s\n", data.Timer)
	b.WriteString(data.ProgressView)
	if data.Done {
		b.WriteString("\ntime is up")
	}
	return b.String()
}

// ReminderMarkdown is the modal body shown when a countdown ends.
func ReminderMarkdown(data ReminderModalData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", data.Title)
	fmt.Fprintf(&b, "**%s** priority", data.Priority)
	if data.RescheduleCount > 0 {
		fmt.Fprintf(&b, ", rescheduled %d time(s)", data.RescheduleCount)
	}
	b.WriteString("\n\n")
	if data.Reason == "recovered" {
		b.WriteString("_This reminder ran out while focusd was not running._\n\n")
	}
	b.WriteString("- `c` mark as done\n")
	for i, minutes := range data.Intervals {
		fmt.Fprintf(&b, "- `%d` remind me again in %d minutes\n", i+1, minutes)
	}
	b.WriteString("- `esc` dismiss\n")
	return b.String()
}

func RenderReminderModal(data ReminderModalData) string {
	return RenderMarkdown(ReminderMarkdown(data))
}

func RenderLevelPanel(data LevelPanelData) string {
	if data.Level == 0 {
		return ""
	}
	line := fmt.Sprintf("level %d  %d/%d xp", data.Level, data.CurrentXP, data.NextLevelXP)
	if data.LastEarned > 0 {
		line += fmt.Sprintf("  +%d", data.LastEarned)
	}
	if data.LeveledUp {
		line += "  level up!"
	}
	return line
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return input
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}

func priorityBadge(priority string) string {
	switch priority {
	case "Urgent":
		return "[RED]"
	case "High":
		return "[YELLOW]"
	case "Medium":
		return "[BLUE]"
	default:
		return "[GREEN]"
	}
}
