// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"visualizer/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	upKeys     = key.NewBinding(key.WithKeys("up", "k"))
	downKeys   = key.NewBinding(key.WithKeys("down", "j"))
	selectKeys = key.NewBinding(key.WithKeys("enter"))
)

// Selection is the result of the device picker.
type Selection struct {
	DeviceID   int
	SampleRate float64
}

// String renders the selection as a config.yaml fragment.
func (s Selection) String() string {
	return fmt.Sprintf("audio:\n  input_device: %d\n  sample_rate: %.0f\n", s.DeviceID, s.SampleRate)
}

type pickerScreen int

const (
	listScreen pickerScreen = iota
	rateScreen
)

var sampleRates = []float64{44100, 48000, 88200, 96000}

type devicesMsg []audio.Device

type errMsg struct{ err error }

// DevicePicker lists input devices and lets the user choose one and a
// sample rate.
type DevicePicker struct {
	devices  []audio.Device
	cursor   int
	rate     int
	screen   pickerScreen
	viewport viewport.Model
	ready    bool
	err      error
	chosen   *Selection
}

func NewDevicePicker() DevicePicker {
	return DevicePicker{}
}

func (m DevicePicker) Init() tea.Cmd {
	return fetchDevices
}

func fetchDevices() tea.Msg {
	devices, err := audio.HostDevices()
	if err != nil {
		return errMsg{err}
	}
	inputs := devices[:0]
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return devicesMsg(inputs)
}

// Selection returns the confirmed choice, if any.
func (m DevicePicker) Selection() (Selection, bool) {
	if m.chosen == nil {
		return Selection{}, false
	}
	return *m.chosen, true
}

func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}

	m.viewport.SetContent(m.render())
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DevicePicker) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.screen {
	case listScreen:
		switch {
		case key.Matches(msg, upKeys):
			m.cursor = max(m.cursor-1, 0)
		case key.Matches(msg, downKeys):
			m.cursor = min(m.cursor+1, max(len(m.devices)-1, 0))
		case key.Matches(msg, selectKeys) && len(m.devices) > 0:
			m.screen = rateScreen
			m.rate = 0
			for i, r := range sampleRates {
				if r == m.devices[m.cursor].DefaultSampleRate {
					m.rate = i
				}
			}
		}
	case rateScreen:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
			m.screen = listScreen
		case key.Matches(msg, upKeys):
			m.rate = max(m.rate-1, 0)
		case key.Matches(msg, downKeys):
			m.rate = min(m.rate+1, len(sampleRates)-1)
		case key.Matches(msg, selectKeys):
			m.chosen = &Selection{DeviceID: m.devices[m.cursor].ID, SampleRate: sampleRates[m.rate]}
			return tea.Quit
		}
	}
	return nil
}

func (m DevicePicker) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	title, help := "Input Devices", "↑/↓: Navigate • Enter: Choose • q: Quit"
	if m.screen == rateScreen {
		title, help = "Sample Rate", "↑/↓: Change • Enter: Confirm • Esc: Back • q: Quit"
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", titleStyle.Render(title), m.viewport.View(), infoStyle.Render(help))
}

func (m DevicePicker) render() string {
	if m.screen == rateScreen {
		return m.renderRates()
	}
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		entry := fmt.Sprintf("[%d] %s (%s)\n    Input channels: %d, Default sample rate: %.0f Hz\n",
			d.ID, d.Name, d.Kind(), d.MaxInputChannels, d.DefaultSampleRate)
		if i == m.cursor {
			entry = highlightStyle.Render(entry)
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePicker) renderRates() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device: %s\n\n", m.devices[m.cursor].Name)
	for i, r := range sampleRates {
		marker := " "
		if i == m.rate {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, r)
		if i == m.rate {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the picker and returns the confirmed choice. ok is false
// when the user quit without choosing.
func PickDevice() (sel Selection, ok bool, err error) {
	final, err := tea.NewProgram(NewDevicePicker(), tea.WithAltScreen()).Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok = final.(DevicePicker).Selection()
	return sel, ok, nil
}

var _ tea.Model = DevicePicker{}
var _ tea.Model = PreviewModel{}
