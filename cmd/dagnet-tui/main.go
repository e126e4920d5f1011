package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Config
const (
	pollRate        = time.Second
	maxCompilations = 20
	viewportHeight  = 20
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Layout styles
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	// Compilation row styles
	rowTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(20)
	rowEdgeStyle  = lipgloss.NewStyle().Width(28).Bold(true)
	rowGraphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")) // Purple

	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // Red
	exactStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // Green
	otherStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // Blue
)

// API Types (mirrored from pkg/store to keep the TUI free of CGO deps)

type GraphInfo struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
}

type Compilation struct {
	EventID   string    `json:"event_id"`
	TsEvent   time.Time `json:"ts_event"`
	GraphName string    `json:"graph_name"`
	FromNode  string    `json:"from_node"`
	ToNode    string    `json:"to_node"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	Checks    int       `json:"checks"`
	Literals  int       `json:"literals"`
	Terms     int       `json:"terms"`
}

type tickMsg time.Time

type dataMsg struct {
	compilations []Compilation
	graphs       []GraphInfo
	err          error
}

type model struct {
	spinner      spinner.Model
	viewport     viewport.Model
	compilations []Compilation
	graphs       []GraphInfo
	err          error
	ready        bool
}

func daemonURL() string {
	if v := os.Getenv("DAGNET_ENDPOINT"); v != "" {
		return v
	}
	return "http://localhost:8090"
}

func initialModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner:      s,
		compilations: []Compilation{},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Pass key messages to viewport
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.compilations = msg.compilations
			m.graphs = msg.graphs
			m.updateViewportContent()
		}

		if !m.ready {
			m.ready = true
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.viewport.Style = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				PaddingRight(2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder

	for _, c := range m.compilations {
		ts := c.TsEvent.Format("15:04:05")

		// Colorize based on compilation status
		var statusStr string
		switch {
		case strings.Contains(c.Status, "degraded") || c.Status == "unsatisfiable":
			statusStr = degradedStyle.Render(c.Status)
		case c.Status == "exact":
			statusStr = exactStyle.Render(c.Status)
		default:
			statusStr = otherStyle.Render(c.Status)
		}

		line := fmt.Sprintf("%s %s %s %s\n",
			rowTimeStyle.Render(ts),
			rowEdgeStyle.Render(fmt.Sprintf("%s -> %s", c.FromNode, c.ToNode)),
			statusStr,
			rowGraphStyle.Render(fmt.Sprintf("Graph: %s (%d terms)", c.GraphName, c.Terms)),
		)
		sb.WriteString(line)
	}

	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	// Top Pane: Graph Catalog
	var graphList strings.Builder
	graphList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Graph Catalog") + "\n\n")

	if len(m.graphs) == 0 {
		graphList.WriteString(subtleStyle.Render("No graphs stored."))
	} else {
		for _, g := range m.graphs {
			graphList.WriteString(fmt.Sprintf("• %s v%d (%d nodes, %d edges)\n", g.Name, g.Version, g.Nodes, g.Edges))
		}
	}

	topPane := paneStyle.Render(graphList.String())

	// Bottom Pane: Compilation Stream
	header := headerStyle.Render(fmt.Sprintf("%s Compilation Stream", m.spinner.View()))
	bottomPane := m.viewport.View()

	// Status Footer
	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Compilations • %d Graphs", len(m.compilations), len(m.graphs)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData() tea.Cmd {
	return func() tea.Msg {
		compilations, err := getCompilations()
		if err != nil {
			return dataMsg{err: err}
		}

		graphs, err := getGraphs()
		if err != nil {
			return dataMsg{err: err}
		}

		return dataMsg{
			compilations: compilations,
			graphs:       graphs,
			err:          nil,
		}
	}
}

func getCompilations() ([]Compilation, error) {
	c := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := c.Get(fmt.Sprintf("%s/v1/compilations?limit=%d", daemonURL(), maxCompilations))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compilations status %d", resp.StatusCode)
	}

	var compilations []Compilation
	if err := json.NewDecoder(resp.Body).Decode(&compilations); err != nil {
		return nil, err
	}
	return compilations, nil
}

func getGraphs() ([]GraphInfo, error) {
	c := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := c.Get(fmt.Sprintf("%s/v1/graphs", daemonURL()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphs status %d", resp.StatusCode)
	}

	var graphs []GraphInfo
	if err := json.NewDecoder(resp.Body).Decode(&graphs); err != nil {
		return nil, err
	}
	return graphs, nil
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
