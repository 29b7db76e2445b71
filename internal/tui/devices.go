// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"slices"
	"strings"

	"pluck/internal/audio"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// commonSampleRates are offered for every device alongside its default.
var commonSampleRates = []float64{44100, 48000, 88200, 96000}

// Selection is the device and sample rate confirmed in the device list.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
}

// Flags renders the selection as command line flags.
func (s Selection) Flags() string {
	return fmt.Sprintf("--device %d --sample-rate %.0f", s.DeviceID, s.SampleRate)
}

type pickerKeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Back, k.Quit}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var pickerKeys = pickerKeyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "configure")),
	Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"), key.WithDisabled()),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// DeviceListModel lets the user pick an output device, then a sample rate.
type DeviceListModel struct {
	devices   []audio.Device
	cursor    int
	viewport  viewport.Model
	help      help.Model
	keys      pickerKeyMap
	ready     bool
	err       error
	screen    ScreenType
	selection *Selection

	rates   []float64
	rateIdx int
}

// fetchDevicesFunc lists host devices; replaced in tests.
var fetchDevicesFunc = audio.GetDevices

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a new device list model
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{
		help:   help.New(),
		keys:   pickerKeys,
		screen: ListScreen,
	}
}

func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

// fetchDevices lists the devices that can play audio.
func fetchDevices() tea.Msg {
	devices, err := fetchDevicesFunc()
	if err != nil {
		return errMsg{err}
	}
	outputs := devices[:0:0]
	for _, d := range devices {
		if d.CanOutput() {
			outputs = append(outputs, d)
		}
	}
	return devicesMsg{outputs}
}

// ratesFor lists commonSampleRates plus the device default, ascending.
func ratesFor(d audio.Device) []float64 {
	rates := slices.Clone(commonSampleRates)
	if d.DefaultSampleRate > 0 && !slices.Contains(rates, d.DefaultSampleRate) {
		rates = append(rates, d.DefaultSampleRate)
		slices.Sort(rates)
	}
	return rates
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.help.Width = msg.Width
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		if m.screen == ListScreen {
			m = m.updateList(msg)
		} else {
			m, cmd = m.updateConfig(msg)
		}
		if cmd != nil {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DeviceListModel) updateList(msg tea.KeyMsg) DeviceListModel {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.devices)-1, 0))
	case key.Matches(msg, m.keys.Enter):
		if len(m.devices) == 0 {
			return m
		}
		device := m.devices[m.cursor]
		m.rates = ratesFor(device)
		m.rateIdx = max(slices.Index(m.rates, device.DefaultSampleRate), 0)
		m.screen = ConfigScreen
		m.keys.Enter.SetHelp("enter", "select")
		m.keys.Back.SetEnabled(true)
	}
	m.refresh()
	return m
}

func (m DeviceListModel) updateConfig(msg tea.KeyMsg) (DeviceListModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = ListScreen
		m.keys.Enter.SetHelp("enter", "configure")
		m.keys.Back.SetEnabled(false)
	case key.Matches(msg, m.keys.Up):
		m.rateIdx = max(m.rateIdx-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.rateIdx = min(m.rateIdx+1, len(m.rates)-1)
	case key.Matches(msg, m.keys.Enter):
		device := m.devices[m.cursor]
		m.selection = &Selection{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			SampleRate: m.rates[m.rateIdx],
		}
		return m, tea.Quit
	}
	m.refresh()
	return m, nil
}

// refresh re-renders the active screen into the viewport.
func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.screen == ConfigScreen {
		m.viewport.SetContent(m.renderRates())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	title := "Output Devices"
	if m.screen == ConfigScreen {
		title = "Device Configuration"
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", titleStyle.Render(title), m.viewport.View(), m.help.View(m.keys))
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No output devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		entry := fmt.Sprintf("[%d] %s\n", d.ID, d.Name) +
			fmt.Sprintf("    Output channels: %d\n", d.MaxOutputChannels) +
			fmt.Sprintf("    Default sample rate: %.0f Hz\n", d.DefaultSampleRate) +
			fmt.Sprintf("    Output latency: Low=%.2fms, High=%.2fms\n",
				d.LowOutputLatency.Seconds()*1000, d.HighOutputLatency.Seconds()*1000)
		if i == m.cursor {
			entry = highlightStyle.Render(entry)
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderRates() string {
	device := m.devices[m.cursor]

	var sb strings.Builder
	fmt.Fprintf(&sb, "Configure Device: %s\n\nSample Rate:\n", device.Name)
	for i, rate := range m.rates {
		line := fmt.Sprintf("    %.0f Hz", rate)
		if rate == device.DefaultSampleRate {
			line += dimStyle.Render(" (default)")
		}
		if i == m.rateIdx {
			line = highlightStyle.Render("  ▶ " + strings.TrimLeft(line, " "))
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Selection returns the confirmed device, or nil when the user quit.
func (m DeviceListModel) Selection() *Selection { return m.selection }

// StartDeviceListUI launches the device picker and returns the confirmed
// selection, or nil when the user quit without choosing.
func StartDeviceListUI() (*Selection, error) {
	final, err := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(DeviceListModel).Selection(), nil
}
