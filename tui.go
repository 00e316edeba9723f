package main

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxverify/controller"
	"voxverify/visualizer"
)

// TUI message types
type stateMsg struct{ State controller.State }
type statusMsg struct{ Text string }
type logMsg struct{ Entry controller.Entry }
type outcomeMsg struct{ Outcome controller.Outcome }
type frameMsg struct{ Frame *visualizer.Frame }
type deviceLineMsg struct{ Text string } // microphone device name
type visualizerLineMsg struct{ Text string }
type copiedMsg struct{ Err error }

const (
	panelWidth  = 45
	logPanelMax = 200
)

// tuiActions are the controller entry points the keyboard drives.
type tuiActions struct {
	Toggle func()
	Copy   func() error
	Quit   func()
}

type tuiModel struct {
	actions       tuiActions
	state         controller.State
	status        string
	frame         *visualizer.Frame
	logs          []controller.Entry
	showLog       bool
	width, height int
	deviceLine    string
	visLine       string
	verified      int
	lastMessage   string // last verified extracted message
	lastText      string // last decoded text
	copied        bool
	copyErr       error
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	verifiedText = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	buttonIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25")).Padding(0, 2).Bold(true)
	buttonRec    = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 2).Bold(true)
	buttonBusy   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236")).Padding(0, 2)

	levelStyles = map[controller.Level]lipgloss.Style{
		controller.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		controller.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		controller.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func NewTUIProgram(actions tuiActions) *tea.Program {
	m := tuiModel{actions: actions, status: controller.StatusWelcome}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.actions.Quit != nil {
				go m.actions.Quit()
			}
			return m, tea.Quit
		case " ", "enter":
			if m.actions.Toggle != nil && buttonEnabled(m.state) {
				go m.actions.Toggle()
			}
		case "l":
			m.showLog = !m.showLog
		case "c":
			if m.actions.Copy != nil && m.lastMessage != "" {
				copyFn := m.actions.Copy
				return m, func() tea.Msg { return copiedMsg{Err: copyFn()} }
			}
		}

	case stateMsg:
		m.state = msg.State
		if msg.State == controller.Recording {
			m.copied = false
			m.copyErr = nil
		}

	case statusMsg:
		m.status = msg.Text

	case logMsg:
		m.logs = append(m.logs, msg.Entry)
		if len(m.logs) > logPanelMax {
			m.logs = m.logs[len(m.logs)-logPanelMax:]
		}

	case outcomeMsg:
		m.lastText = msg.Outcome.Text
		if msg.Outcome.Verified {
			m.verified++
			m.lastMessage = msg.Outcome.Status
		}

	case frameMsg:
		m.frame = msg.Frame

	case deviceLineMsg:
		m.deviceLine = msg.Text

	case visualizerLineMsg:
		m.visLine = msg.Text

	case copiedMsg:
		m.copied = msg.Err == nil
		m.copyErr = msg.Err
	}
	return m, nil
}

// buttonEnabled mirrors the disabled Validate button while the controller
// is busy.
func buttonEnabled(s controller.State) bool {
	return s != controller.Initializing && s != controller.Processing
}

func buttonLabel(s controller.State) string {
	switch s {
	case controller.Recording:
		return buttonRec.Render("Stop Recording")
	case controller.Initializing, controller.Processing:
		return buttonBusy.Render("Validate")
	}
	return buttonIdle.Render("Validate")
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string
	left = append(left, titleStyle.Render("voxverify "+version), "")
	if m.frame != nil {
		left = append(left, strings.Split(strings.TrimRight(m.frame.ANSI(), "\n"), "\n")...)
	}
	left = append(left, "", buttonLabel(m.state), "")
	for _, line := range wrapText(m.status, panelWidth-2) {
		left = append(left, statusStyle.Render(line))
	}
	left = append(left, "")
	if m.deviceLine != "" {
		left = append(left, dimStyle.Render(m.deviceLine))
	}
	if m.visLine != "" {
		left = append(left, dimStyle.Render(m.visLine))
	}
	left = append(left, "")
	left = append(left, boldHelp.Render("space")+helpStyle.Render(" validate  ")+
		boldHelp.Render("l")+helpStyle.Render(" log  ")+
		boldHelp.Render("c")+helpStyle.Render(" copy  ")+
		boldHelp.Render("q")+helpStyle.Render(" quit"))

	leftPanel := lipgloss.NewStyle().
		Width(panelWidth - 1).
		Height(m.height).
		Render(strings.Join(left, "\n"))

	logWidth := m.width - panelWidth - 1
	if logWidth < 20 {
		logWidth = 20
	}
	wrapWidth := logWidth - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var right strings.Builder
	if m.lastMessage != "" {
		right.WriteString(dimStyle.Render(fmt.Sprintf("Last verified signature (#%d)", m.verified)) + "\n\n")
		lines := wrapText(m.lastMessage, wrapWidth)
		for i, line := range lines {
			right.WriteString(verifiedText.Render(line))
			if i == len(lines)-1 && m.copied {
				right.WriteString(" " + verifiedText.Render("[✓ copied]"))
			}
			right.WriteString("\n")
		}
		if m.copyErr != nil {
			right.WriteString(levelStyles[controller.LevelError].Render("copy failed: "+m.copyErr.Error()) + "\n")
		}
	} else {
		right.WriteString(dimStyle.Render("No verified signatures yet") + "\n")
	}
	if m.lastText != "" && m.lastText != m.lastMessage {
		right.WriteString("\n" + dimStyle.Render("decoded: "+m.lastText) + "\n")
	}

	if m.showLog {
		right.WriteString("\n" + dimStyle.Render("Debug log") + "\n")
		room := m.height - strings.Count(right.String(), "\n") - 1
		var lines []string
		for _, e := range m.logs {
			for _, l := range wrapText(e.String(), wrapWidth) {
				lines = append(lines, levelStyles[e.Level].Render(l))
			}
		}
		if room > 0 && len(lines) > room {
			lines = lines[len(lines)-room:]
		}
		right.WriteString(strings.Join(lines, "\n"))
	} else {
		right.WriteString("\n" + helpStyle.Render(fmt.Sprintf("debug log: %d entries (l)", len(m.logs))))
	}

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(right.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, logPanel)
}

// tuiSink forwards controller events into the Bubble Tea program.
type tuiSink struct {
	c *controller.Controller
}

func (t tuiSink) StateChanged(s controller.State) {
	tuiSend(stateMsg{State: s})
	if s == controller.Ready && t.c != nil {
		if sess := t.c.Session(); sess != nil && sess.Visualizer != nil {
			tuiSend(visualizerLineMsg{Text: "visualizer: " + sess.Visualizer.Kind().String()})
		}
	}
}

func (tuiSink) Status(text string)           { tuiSend(statusMsg{Text: text}) }
func (tuiSink) LogEntry(e controller.Entry)  { tuiSend(logMsg{Entry: e}) }
func (tuiSink) Outcome(o controller.Outcome) { tuiSend(outcomeMsg{Outcome: o}) }
func (tuiSink) Frame(f *visualizer.Frame)    { tuiSend(frameMsg{Frame: f}) }

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
