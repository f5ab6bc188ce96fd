//go:build !notui

package rulelist

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ishangarg01/cmd-gen/internal/registry"
	"github.com/ishangarg01/cmd-gen/internal/tui"
)

// ruleItem implements list.Item for a single risk rule.
type ruleItem struct {
	rule registry.RiskRule
}

func (i ruleItem) FilterValue() string { return i.rule.Name }

// Title returns plain text — styling is done in the custom delegate to avoid
// ANSI escape corruption when bubbles/list applies filter highlighting.
func (i ruleItem) Title() string {
	return i.rule.Name
}

func (i ruleItem) Description() string {
	r := i.rule

	pattern := r.Pattern
	if len(pattern) > 40 {
		pattern = pattern[:37] + "..."
	}

	pathStr := ""
	if len(r.Paths) > 0 {
		pathStr = r.Paths[0]
		if len(r.Paths) > 1 {
			pathStr = fmt.Sprintf("%s (+%d)", r.Paths[0], len(r.Paths)-1)
		}
	}

	parts := []string{
		tui.SeverityBadge(string(r.Severity)),
		tui.StyleMuted.Render(pattern),
	}
	if pathStr != "" {
		parts = append(parts, tui.StyleMuted.Render("paths: "+pathStr))
	}
	return strings.Join(parts, "  ")
}

// headerItem is a non-selectable separator for group headers.
type headerItem struct {
	title string
}

func (h headerItem) FilterValue() string { return "" }
func (h headerItem) Title() string       { return tui.Separator(h.title) }
func (h headerItem) Description() string { return "" }

// ruleDelegate renders rule items with styling that won't leak ANSI
// escapes into the filter highlight overlay.
type ruleDelegate struct {
	styles list.DefaultItemStyles
}

func newRuleDelegate() ruleDelegate {
	styles := list.NewDefaultItemStyles()
	styles.SelectedTitle = styles.SelectedTitle.
		Foreground(tui.ColorAccent).
		BorderLeftForeground(tui.ColorAccent)
	styles.SelectedDesc = styles.SelectedDesc.
		Foreground(tui.ColorMuted).
		BorderLeftForeground(tui.ColorAccent)
	return ruleDelegate{styles: styles}
}

func (d ruleDelegate) Height() int                         { return 2 }
func (d ruleDelegate) Spacing() int                        { return 1 }
func (d ruleDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d ruleDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(ruleItem)
	if !ok {
		if h, ok := item.(headerItem); ok {
			fmt.Fprint(w, tui.Separator(h.title))
		}
		return
	}

	title := tui.SeverityStyle(string(ri.rule.Severity)).Render(tui.IconSquare) +
		" " + tui.StyleBold.Render(ri.rule.Name)
	desc := ri.Description()

	if index == m.Index() {
		title = d.styles.SelectedTitle.Render("> " + ri.rule.Name)
		desc = d.styles.SelectedDesc.Render("  " + desc)
	} else {
		title = "  " + title
		desc = "  " + desc
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// model is the bubbletea model for the interactive rule list.
type model struct {
	list   list.Model
	width  int
	height int
}

// Render displays rules in an interactive list with scroll navigation and
// filtering by name. Falls back to static display in plain mode.
func Render(rules []registry.RiskRule, total int) error {
	if tui.IsPlainMode() {
		return RenderPlain(rules, total)
	}

	items := buildListItems(rules)

	// Custom delegate avoids ANSI escape leak in filter mode
	delegate := newRuleDelegate()

	l := list.New(items, delegate, 80, 24)
	l.Title = fmt.Sprintf("Risk Rules (%d total)", total)
	l.Styles.Title = tui.StyleTitle
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(tui.ColorAccent)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	m := model{list: l}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if msg.String() == "q" && !m.list.SettingFilter() {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.list.View()
}

// buildListItems converts rules into list items grouped by source.
func buildListItems(rules []registry.RiskRule) []list.Item {
	var items []list.Item

	builtin, userByFile := groupBySource(rules)

	for _, r := range builtin {
		items = append(items, ruleItem{rule: r})
	}

	filenames := make([]string, 0, len(userByFile))
	for f := range userByFile {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)

	for _, filename := range filenames {
		items = append(items, headerItem{title: filename})
		for _, r := range userByFile[filename] {
			items = append(items, ruleItem{rule: r})
		}
	}

	return items
}
