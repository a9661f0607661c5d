package views

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTaskPanelMarksAdmittedAndSelection(t *testing.T) {
	out := RenderTaskPanel(TaskPanelData{Rows: []TaskRowData{
		{ShortID: "ab12", Title: "pay rent", Priority: "Urgent", Status: "Pending", Phase: "Active", Admitted: true, Selected: true},
		{ShortID: "cd34", Title: "water plants", Priority: "Lowest", Status: "Completed", Phase: "Completed"},
	}})

	lines := strings.Split(out, "\n")
	assert.Equal(t, ">* ab12 [RED] pay rent [active]", lines[1])
	assert.Equal(t, "   cd34 [GREEN] water plants (completed)", lines[2])
}

func TestRenderTaskPanelEmpty(t *testing.T) {
	assert.Contains(t, RenderTaskPanel(TaskPanelData{}), "(none")
}

func TestReminderMarkdownListsIntervals(t *testing.T) {
	md := ReminderMarkdown(ReminderModalData{
		Title: "stretch", Priority: "High", Reason: "recovered",
		Intervals: []int{5, 15}, RescheduleCount: 2,
	})
	assert.Contains(t, md, "# stretch")
	assert.Contains(t, md, "rescheduled 2 time(s)")
	assert.Contains(t, md, "- `1` remind me again in 5 minutes")
	assert.Contains(t, md, "- `2` remind me again in 15 minutes")
	assert.Contains(t, md, "not running")
}

func TestRenderLevelPanel(t *testing.T) {
	assert.Empty(t, RenderLevelPanel(LevelPanelData{}))
	assert.Equal(t, "level 3  10/225 xp  +90  level up!",
		RenderLevelPanel(LevelPanelData{Level: 3, CurrentXP: 10, NextLevelXP: 225, LastEarned: 90, LeveledUp: true}))
}

func TestRenderAppModalReplacesPanes(t *testing.T) {
	out := RenderApp(AppData{Header: "focusd", LeftPane: "LEFT", RightPane: "RIGHT", Modal: "MODAL"})
	assert.Contains(t, out, "MODAL")
	assert.NotContains(t, out, "LEFT")
}
