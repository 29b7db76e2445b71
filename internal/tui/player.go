// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"pluck/internal/tuning"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	DefaultRefresh     = 33 * time.Millisecond
	DefaultPoints      = 100
	DefaultScopeHeight = 15
	scopeDot           = "•"
)

// Plucker accepts key events.
type Plucker interface {
	Push(key rune) bool
}

// WindowSource is the read side of the visualization window.
type WindowSource interface {
	SnapshotInto(dst []float64) int
	Size() int
}

// Stats is shown under the waveform.
type Stats struct {
	Cycles    uint64
	Dropped   uint64
	Underruns uint64
	Buffered  int
	Backend   string
}

// PlayerConfig wires the player to the running instrument.
type PlayerConfig struct {
	Queue       Plucker
	Window      WindowSource
	Keyboard    string
	Frequencies map[rune]float64
	Points      int           // Waveform columns, DefaultPoints when zero.
	Height      int           // Waveform rows, DefaultScopeHeight when zero.
	Refresh     time.Duration // Redraw interval, DefaultRefresh when zero.
	Stats       func() Stats  // Optional.
}

type playerKeyMap struct {
	Pluck key.Binding
	Quit  key.Binding
}

func (k playerKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Pluck, k.Quit} }

func (k playerKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var playerKeys = playerKeyMap{
	Pluck: key.NewBinding(key.WithKeys("q"), key.WithHelp("keyboard", "pluck a string")),
	Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

type tickMsg time.Time

// PlayerModel turns key presses into plucks and draws the rolling window.
// Letters are instrument keys, so only esc and ctrl+c quit.
type PlayerModel struct {
	cfg      PlayerConfig
	help     help.Model
	snapshot []float64
	points   []float64

	lastKey rune
	plucks  int
	missed  int
	stats   Stats
}

func NewPlayerModel(cfg PlayerConfig) PlayerModel {
	if cfg.Points <= 0 {
		cfg.Points = DefaultPoints
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultScopeHeight
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}
	return PlayerModel{
		cfg:      cfg,
		help:     help.New(),
		snapshot: make([]float64, cfg.Window.Size()),
		points:   make([]float64, cfg.Points),
	}
}

func (m PlayerModel) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m PlayerModel) Init() tea.Cmd {
	return m.tick()
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, playerKeys.Quit) {
			return m, tea.Quit
		}
		if r, ok := keyRune(msg); ok {
			m.lastKey = r
			if m.cfg.Queue.Push(r) {
				m.plucks++
			} else {
				m.missed++
			}
		}

	case tickMsg:
		n := m.cfg.Window.SnapshotInto(m.snapshot)
		Downsample(m.points, m.snapshot[:n])
		if m.cfg.Stats != nil {
			m.stats = m.cfg.Stats()
		}
		return m, m.tick()
	}
	return m, nil
}

// keyRune extracts the single character of a key press.
func keyRune(msg tea.KeyMsg) (rune, bool) {
	switch msg.Type {
	case tea.KeySpace:
		return ' ', true
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && !msg.Alt {
			return msg.Runes[0], true
		}
	}
	return 0, false
}

func (m PlayerModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("pluck"))
	sb.WriteString("  ")
	sb.WriteString(m.noteLine())
	sb.WriteString("\n\n")
	sb.WriteString(scopeStyle.Render(RenderWaveform(m.points, m.cfg.Height)))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(m.statsLine()))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(m.cfg.Keyboard))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(playerKeys))
	return sb.String()
}

func (m PlayerModel) noteLine() string {
	if m.lastKey == 0 {
		return infoStyle.Render("press a key")
	}
	freq, ok := m.cfg.Frequencies[m.lastKey]
	if !ok {
		return dimStyle.Render(fmt.Sprintf("%q is not a string", m.lastKey))
	}
	return highlightStyle.Render(fmt.Sprintf("%q  %s  %.2f Hz", m.lastKey, tuning.NoteName(freq), freq))
}

func (m PlayerModel) statsLine() string {
	line := fmt.Sprintf("plucks %d  missed %d", m.plucks, m.missed)
	if m.cfg.Stats != nil {
		line += fmt.Sprintf("  samples %d  dropped %d  underruns %d  buffered %d",
			m.stats.Cycles, m.stats.Dropped, m.stats.Underruns, m.stats.Buffered)
		if m.stats.Backend != "" {
			line += "  " + m.stats.Backend
		}
	}
	return line
}

// Downsample fills dst with evenly spaced samples of src. A short src is
// right aligned and the rest of dst is zeroed.
func Downsample(dst, src []float64) {
	if len(src) < len(dst) {
		pad := len(dst) - len(src)
		clear(dst[:pad])
		copy(dst[pad:], src)
		return
	}
	step := float64(len(src)) / float64(len(dst))
	for i := range dst {
		dst[i] = src[int(float64(i)*step)]
	}
}

// RenderWaveform draws points as a scatter plot of the given height, +1 on
// the top row and -1 on the bottom. Values outside that range are pinned
// to the edges.
func RenderWaveform(points []float64, height int) string {
	if height < 1 {
		height = 1
	}
	rows := make([][]byte, height)
	for r := range rows {
		rows[r] = []byte(strings.Repeat(" ", len(points)))
	}
	for c, v := range points {
		v = math.Max(-1, math.Min(1, v))
		r := int(math.Round((1 - v) / 2 * float64(height-1)))
		rows[r][c] = '*'
	}

	var sb strings.Builder
	for r, row := range rows {
		if r > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.ReplaceAll(string(row), "*", scopeDot))
	}
	return sb.String()
}

// RunPlayer runs the player until the user quits or ctx is cancelled.
func RunPlayer(ctx context.Context, cfg PlayerConfig) error {
	p := tea.NewProgram(
		NewPlayerModel(cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
