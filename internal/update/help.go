package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/focusd/internal/views"
)

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) shortBindings() []key.Binding {
	if m.Modal != nil {
		return []key.Binding{m.Keys.Complete, m.Keys.Dismiss}
	}
	return []key.Binding{m.Keys.Palette, m.Keys.Done, m.Keys.Snooze, m.Keys.Help, m.Keys.Quit}
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return "\n\n" + m.renderHelpView()
}

func (m Model) renderHelpView() string {
	listKeys := []key.Binding{m.Keys.Up, m.Keys.Down, m.Keys.Done, m.Keys.Snooze, m.Keys.Delete}
	globalKeys := []key.Binding{m.Keys.Palette, m.Keys.Help, m.Keys.Quit}
	modalKeys := []key.Binding{m.Keys.Complete, m.Keys.Dismiss}
	commandsHelp := []string{
		"add <priority> <minutes,...> <title>",
		"done <id>",
		"snooze <id> [interval-index]",
		"edit <id> <field>=<value>",
		"delete <id>",
		"level",
	}
	plain := make([]string, 0, len(commandsHelp))
	for _, c := range commandsHelp {
		plain = append(plain, fmt.Sprintf("- /%s", c))
	}
	full := m.helpModel
	full.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: full.View(helpKeyMap{
			short: m.shortBindings(),
			full:  [][]key.Binding{listKeys, globalKeys, modalKeys},
		}),
	})
}
