package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dictate/config"
	"dictate/pipeline"
)

// TUI message types
type stateMsg struct{ State pipeline.State }
type transcriptMsg struct{ Text string }
type settingsMsg struct {
	Mode   string
	Hotkey string
}
type tickMsg time.Time

type tuiModel struct {
	state      pipeline.State
	started    time.Time
	elapsed    time.Duration
	count      int
	width      int
	modeLine   string
	hotkeyLine string
	deviceLine string
	lastText   string
}

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleStandby = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		if m.state == pipeline.Recording {
			m.elapsed = time.Time(msg).Sub(m.started)
		}
		return m, tuiTick()

	case stateMsg:
		if msg.State == pipeline.Recording {
			m.started = time.Now()
			m.elapsed = 0
		}
		m.state = msg.State

	case transcriptMsg:
		m.count++
		m.lastText = msg.Text

	case settingsMsg:
		m.modeLine = msg.Mode
		m.hotkeyLine = msg.Hotkey
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	switch m.state {
	case pipeline.Recording:
		b.WriteString(styleRec.Render(fmt.Sprintf("● REC %.1fs", m.elapsed.Seconds())))
	case pipeline.Processing:
		b.WriteString(styleBusy.Render("◌ TRANSCRIBING"))
	case pipeline.Done:
		b.WriteString(styleDone.Render("✓ DONE"))
	default:
		b.WriteString(styleStandby.Render("○ STANDBY"))
	}
	b.WriteString("\n")

	for _, line := range []string{m.modeLine, "mic: " + m.deviceLine} {
		if line != "" {
			b.WriteString(styleInfo.Render(line) + "\n")
		}
	}
	b.WriteString("\n")

	if m.lastText != "" {
		b.WriteString(styleInfo.Render(fmt.Sprintf("Last transcription (#%d)", m.count)) + "\n")
		width := m.width - 2
		if width < 10 {
			width = 60
		}
		for _, line := range wrapText(m.lastText, width) {
			b.WriteString(styleText.Render(line) + "\n")
		}
	} else {
		b.WriteString(styleStandby.Render("No transcriptions yet") + "\n")
	}

	b.WriteString("\n")
	if m.hotkeyLine != "" {
		b.WriteString(styleHelp.Bold(true).Render(m.hotkeyLine) + styleHelp.Render(" to record, q to quit") + "\n")
	}
	b.WriteString(styleHelp.Render("dictate " + version))
	return b.String()
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

// statusView drives the TUI from pipeline events. Messages are queued so
// an observer never waits on the render loop.
type statusView struct {
	program *tea.Program
	msgs    chan tea.Msg
}

func newStatusView(device string) *statusView {
	v := &statusView{
		program: tea.NewProgram(tuiModel{deviceLine: device}),
		msgs:    make(chan tea.Msg, 32),
	}
	go func() {
		for msg := range v.msgs {
			v.program.Send(msg)
		}
	}()
	return v
}

func (v *statusView) send(msg tea.Msg) {
	select {
	case v.msgs <- msg:
	default:
	}
}

func (v *statusView) StateChanged(s pipeline.State) { v.send(stateMsg{s}) }

func (v *statusView) Transcript(text string) { v.send(transcriptMsg{strings.TrimSpace(text)}) }

// Settings refreshes the mode and hotkey lines.
func (v *statusView) Settings(s config.Settings, orch *pipeline.Orchestrator) {
	backend := s.Backend().String()
	if m := orch.ActiveModel(); m != "" {
		backend += ":" + m
	}
	if s.Language != "" {
		backend += " (" + s.Language + ")"
	}
	hk := "no hotkey"
	if b, ok := orch.Binding(); ok {
		hk = b.String()
	}
	v.send(settingsMsg{
		Mode:   fmt.Sprintf("[%s | inject %s]", backend, s.InjectMode),
		Hotkey: hk,
	})
}

func (v *statusView) Run() error {
	_, err := v.program.Run()
	return err
}

func (v *statusView) Quit() { v.program.Quit() }
