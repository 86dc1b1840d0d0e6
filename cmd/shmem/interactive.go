package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-threads/memory"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLogLines = 10

type dashboardModel struct {
	mem      *memory.Shared
	progress progress.Model
	input    textinput.Model
	log      []string
	addr     uint64
	timeout  time.Duration
	editing  bool
}

type tickMsg time.Time

type waitDoneMsg struct {
	err  error
	addr uint64
	res  memory.WaitResult
}

func newDashboardModel(mem *memory.Shared, opts options) *dashboardModel {
	ti := textinput.New()
	ti.Prompt = "address: "
	ti.Placeholder = "0x40"
	ti.Width = 20

	return &dashboardModel{
		mem:      mem,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		input:    ti,
		addr:     opts.addr,
		timeout:  opts.timeout,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *dashboardModel) Init() tea.Cmd {
	return tick()
}

func (m *dashboardModel) logf(format string, args ...any) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "g":
			g, err := m.mem.Grow(1, nil)
			if err != nil {
				m.logf("grow: %v", err)
			} else {
				m.logf("grow: %d -> %d bytes", g.Old, g.New)
			}

		case "w":
			return m, m.wait(m.addr)

		case "n":
			m.notify(1)

		case "a":
			m.notify(math.MaxUint32)

		case "tab":
			m.editing = true
			m.input.SetValue("")
			m.input.Focus()
		}

	case tickMsg:
		return m, tick()

	case waitDoneMsg:
		if msg.err != nil {
			m.logf("wait %#x: %v", msg.addr, msg.err)
		} else {
			m.logf("wait %#x: %s", msg.addr, msg.res)
		}
	}

	return m, nil
}

func (m *dashboardModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		addr, err := strconv.ParseUint(strings.TrimSpace(m.input.Value()), 0, 64)
		if err != nil {
			m.logf("address: %v", err)
		} else {
			m.addr = addr
		}
		m.editing = false
		m.input.Blur()
		return m, nil

	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// wait parks a goroutine on addr, expecting the value it holds now.
func (m *dashboardModel) wait(addr uint64) tea.Cmd {
	expected, err := m.mem.Load32(addr)
	if err != nil {
		m.logf("wait %#x: %v", addr, err)
		return nil
	}
	mem, timeout := m.mem, m.timeout
	m.logf("wait %#x: parked expecting %d", addr, expected)
	return func() tea.Msg {
		res, err := mem.AtomicWait32(addr, expected, timeout)
		return waitDoneMsg{res: res, err: err, addr: addr}
	}
}

func (m *dashboardModel) notify(count uint32) {
	woken, err := m.mem.AtomicNotify(m.addr, count)
	if err != nil {
		m.logf("notify %#x: %v", m.addr, err)
		return
	}
	m.logf("notify %#x: woke %d", m.addr, woken)
}

func (m *dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Shared Memory"))
	b.WriteString(" ")
	b.WriteString(m.mem.Type().String())
	b.WriteString("\n\n")

	size := m.mem.Definition().Length()
	maxBytes, _ := m.mem.Maximum()
	percent := 0.0
	if maxBytes > 0 {
		percent = float64(size) / float64(maxBytes)
	}
	pageShift := m.mem.PageSizeLog2()
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString(fmt.Sprintf("  %d / %d pages\n\n", size>>pageShift, maxBytes>>pageShift))

	b.WriteString(labelStyle.Render("address "))
	b.WriteString(fmt.Sprintf("%#x", m.addr))
	if v, err := m.mem.Load32(m.addr); err == nil {
		b.WriteString(labelStyle.Render("  value "))
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	b.WriteString(labelStyle.Render("  parked "))
	b.WriteString(strconv.Itoa(m.mem.Waiters(m.addr)))
	b.WriteString("\n\n")

	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	for _, line := range m.log {
		if strings.Contains(line, "[") {
			b.WriteString(errorStyle.Render(line))
		} else {
			b.WriteString(resultStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.editing {
		b.WriteString(helpStyle.Render("enter apply • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("g grow • w wait • n notify one • a notify all • tab address • q quit"))
	}

	return b.String()
}

func runInteractive(mem *memory.Shared, opts options) error {
	p := tea.NewProgram(newDashboardModel(mem, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
