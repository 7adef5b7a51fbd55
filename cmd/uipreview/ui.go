package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"uipreview/internal/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	path       string
	result     *render.Result
	renderer   render.RendererType
	rendererUp bool
	elapsed    time.Duration
	lastUpdate time.Time
}

type renderDoneMsg struct {
	path     string
	result   *render.Result
	renderer render.RendererType
	elapsed  time.Duration
}

type rendererChangedMsg struct {
	renderer render.RendererType
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case rendererChangedMsg:
		m.renderer = msg.renderer
	case renderDoneMsg:
		m.path = msg.path
		m.result = msg.result
		m.renderer = msg.renderer
		m.elapsed = msg.elapsed
		m.lastUpdate = time.Now()

		items := []list.Item{}
		if msg.result.Failure != nil {
			desc := msg.result.Failure.Message
			if msg.result.Failure.Line > 0 {
				desc = fmt.Sprintf("%s at %d:%d", desc, msg.result.Failure.Line, msg.result.Failure.Column)
			}
			items = append(items, item{
				title: fmt.Sprintf("Render Failed [%s]", msg.result.Failure.Code),
				desc:  desc,
			})
		}
		for _, w := range msg.result.Warnings {
			items = append(items, item{
				title: fmt.Sprintf("Warning [%s]", w.Code),
				desc:  w.Message,
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	renderer := string(m.renderer)
	if renderer == "" {
		renderer = "none"
	}
	status := statusStyle.Render(fmt.Sprintf("Last render: %v | %s | %v",
		m.lastUpdate.Format("15:04:05"), renderer, m.elapsed.Round(time.Millisecond)))

	var summary string
	switch {
	case m.result == nil:
		summary = statusStyle.Render("waiting for first render")
	case m.result.Failure != nil:
		summary = failureStyle.Render(fmt.Sprintf("✗ %s", m.result.Failure.Code))
	case len(m.result.Warnings) > 0:
		summary = warningStyle.Render(fmt.Sprintf("⚠ %d warnings", len(m.result.Warnings)))
	default:
		summary = successStyle.Render(fmt.Sprintf("✓ %d elements", len(m.result.Mappings)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Markup Preview: "+m.path), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Diagnostics"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}
