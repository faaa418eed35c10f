package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nrdvana/slidelink/internal/models"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	ghostStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	notesStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Foreground(lipgloss.Color("250"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 2)
	navStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	navActiveStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(renderSlide(m.snap.Slide, m.snap.Position.StepNum, m.snap.Presenter()))

	if m.snap.Notes && m.snap.Slide.Notes != "" {
		b.WriteString("\n")
		b.WriteString(notesStyle.Render(m.snap.Slide.Notes))
		b.WriteString("\n")
	}
	if m.snap.Navigate {
		b.WriteString("\n")
		b.WriteString(renderNav(m.snap.Position.SlideNum, m.snap.SlideCount))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.snap.Notice != "" {
		b.WriteString(noticeStyle.Render(m.snap.Notice))
		b.WriteString(" ")
	}
	b.WriteString(statusBarStyle.Render(strings.Join(m.snap.Status, " | ")))
	b.WriteString("\n")
	b.WriteString(renderHelp(m.keys))
	return b.String()
}

// renderSlide draws the slide at step n. Hidden steps keep their line so
// the layout does not jump; removed steps give it up.
func renderSlide(slide models.Slide, n int, presenter bool) string {
	var b strings.Builder
	title := slide.Title
	if title == "" {
		title = fmt.Sprintf("Slide %d", slide.Index)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if slide.Body != "" {
		b.WriteString(slide.Body)
		b.WriteString("\n")
	}
	for _, step := range slide.Steps {
		switch step.Visibility(n, presenter) {
		case models.Visible:
			b.WriteString(step.Text)
			b.WriteString("\n")
		case models.Ghosted:
			b.WriteString(ghostStyle.Render(step.Text))
			b.WriteString("\n")
		case models.Hidden:
			b.WriteString(strings.Repeat(" ", lipgloss.Width(step.Text)))
			b.WriteString("\n")
		case models.Removed:
		}
	}
	return b.String()
}

func renderNav(current, count int) string {
	parts := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		label := fmt.Sprintf("%d", i)
		if i == current {
			parts = append(parts, navActiveStyle.Render(label))
		} else {
			parts = append(parts, navStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func renderHelp(k keyMap) string {
	bindings := k.help()
	parts := make([]string, 0, len(bindings)+1)
	parts = append(parts, "←/→ slide  ↑/↓ step")
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}
