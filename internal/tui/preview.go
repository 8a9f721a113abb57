// SPDX-License-Identifier: MIT
/*
Package tui renders terminal views with bubbletea and lipgloss: a live
preview of the LED frames being sent, and an interactive device picker.
*/
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"visualizer/internal/animation"
	"visualizer/internal/color"
	"visualizer/internal/frame"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PreviewRate is how often the preview redraws.
const PreviewRate = 30

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	quitKeys = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))
)

// FrameSource exposes the most recently sent frame.
type FrameSource interface {
	LastFrame() []byte
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/PreviewRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// PreviewModel draws one row of colored cells per strip.
type PreviewModel struct {
	source FrameSource
	order  color.Order
	strips []animation.Strip
	frames uint64
	err    error
}

func NewPreviewModel(source FrameSource, order color.Order) PreviewModel {
	return PreviewModel{source: source, order: order}
}

func (m PreviewModel) Init() tea.Cmd {
	return tick()
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tick()
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			return m, tea.Quit
		}
	}
	return m, nil
}

// refresh decodes the latest frame. A malformed frame keeps the previous
// picture and shows the error.
func (m *PreviewModel) refresh() {
	raw := m.source.LastFrame()
	if len(raw) == 0 {
		return
	}
	strips, err := frame.Decode(raw, m.order)
	if err != nil {
		m.err = err
		return
	}
	m.strips, m.err = strips, nil
	m.frames++
}

func (m PreviewModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("LED Preview"))
	sb.WriteString("\n\n")

	if len(m.strips) == 0 {
		sb.WriteString("Waiting for frames...\n")
	}
	for i := range m.strips {
		fmt.Fprintf(&sb, "%2d ", i)
		for _, c := range m.strips[i] {
			sb.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(highlightStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("%d strips • %d frames • q: Quit", len(m.strips), m.frames)))
	return sb.String()
}

// RunPreview blocks until the user quits or ctx is done.
func RunPreview(ctx context.Context, source FrameSource, order color.Order) error {
	p := tea.NewProgram(
		NewPreviewModel(source, order),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
