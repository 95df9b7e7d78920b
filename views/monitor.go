package views

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imu-window/models"
	"imu-window/utils"
)

// StatusMsg carries one cycle snapshot into the monitor.
type StatusMsg models.CycleStatus

// ReportMsg carries a status or failure line into the monitor.
type ReportMsg string

// DoneMsg tells the monitor the polling loop has ended.
type DoneMsg struct{}

// ProgramReporter forwards Reporter lines to a running tea.Program.
type ProgramReporter struct {
	Program *tea.Program
}

func (r ProgramReporter) Report(format string, args ...any) {
	if r.Program != nil {
		r.Program.Send(ReportMsg(fmt.Sprintf(format, args...)))
	}
}

// MonitorModel is the Bubble Tea model behind the watch command.
type MonitorModel struct {
	width  int
	height int

	mode     string
	channels int
	length   int

	status  models.CycleStatus
	last    *models.Window
	lastMsg string
	done    bool
}

// NewMonitor creates a monitor for a pipeline of the given shape.
func NewMonitor(mode string, channels, length int) MonitorModel {
	return MonitorModel{mode: mode, channels: channels, length: length}
}

func (m MonitorModel) Init() tea.Cmd { return nil }

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case StatusMsg:
		m.status = models.CycleStatus(msg)
		if msg.Window != nil {
			m.last = msg.Window
		}
	case ReportMsg:
		m.lastMsg = string(msg)
	case DoneMsg:
		m.done = true
	}
	return m, nil
}

func (m MonitorModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	inner := max(width-6, 20)
	s := m.status

	state := StyleFilling.Render("FILLING")
	if s.Ready {
		state = StyleReady.Render("READY")
	}
	if m.done {
		state += StyleLabel.Render("  (stopped)")
	}

	lines := []string{
		StyleTitle.Render(fmt.Sprintf("IMU WINDOW  ·  %s  ·  %d ch  ·  window %d", m.mode, m.channels, m.length)),
		field("state", state),
		field("fill", FillGauge(s.Written, s.Required, max(inner-24, 10))),
		field("cursor", fmt.Sprintf("%d / %d", s.Cursor, s.Capacity)),
		field("cycles", fmt.Sprintf("%d   samples %d   windows %d   errors %d", s.Cycle, s.Ingested, s.Windows, s.Errors)),
	}

	if m.last != nil {
		names := models.ChannelNames(m.last.Channels)
		lines = append(lines, "", StyleHeader.Render(fmt.Sprintf("last window  cycle %d  at %s",
			m.last.Cycle, utils.FormatTimestamp(m.last.TimestampNs))))
		for ch := 0; ch < m.last.Channels; ch++ {
			lines = append(lines, field(names[ch], Sparkline(m.last.Channel(ch), max(inner-12, 10))))
		}
	}
	if m.lastMsg != "" {
		lines = append(lines, "", StyleError.Render(m.lastMsg))
	}
	lines = append(lines, "", StyleLabel.Render("q to quit"))

	return StylePanel.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func field(label, value string) string {
	return StyleLabel.Render(fmt.Sprintf("%-8s", label)) + " " + StyleValue.Render(value)
}

// FillGauge draws written/required as a bar that saturates at full.
func FillGauge(written, required, width int) string {
	if width <= 0 {
		return ""
	}
	frac := 1.0
	if required > 0 {
		frac = math.Min(float64(written)/float64(required), 1)
	}
	filled := int(math.Round(frac * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) +
		fmt.Sprintf(" %3.0f%%", frac*100)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders vals into at most width cells, averaging buckets when
// there are more values than cells.
func Sparkline(vals []float32, width int) string {
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	n := min(len(vals), width)
	buckets := make([]float64, n)
	for i := range buckets {
		lo := i * len(vals) / n
		hi := (i + 1) * len(vals) / n
		var sum float64
		for _, v := range vals[lo:hi] {
			sum += float64(v)
		}
		buckets[i] = sum / float64(hi-lo)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range buckets {
		if finite(v) {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	out := make([]rune, n)
	for i, v := range buckets {
		if !finite(v) {
			out[i] = ' '
			continue
		}
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[min(max(idx, 0), len(sparkRunes)-1)]
	}
	return string(out)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
