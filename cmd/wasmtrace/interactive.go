package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-tracer/runtime"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/tracer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// tableView is one browsable trace table.
type tableView struct {
	name    string
	columns []table.Column
	rows    []table.Row
	detail  func(row int) string
}

type interactiveModel struct {
	filename string
	fn       string
	result   *runtime.TwoPassResult
	views    []tableView
	table    table.Model
	active   int
	height   int
}

func newInteractiveModel(filename, fn string, res *runtime.TwoPassResult) *interactiveModel {
	m := &interactiveModel{
		filename: filename,
		fn:       fn,
		result:   res,
		views:    buildViews(res.Tables),
		height:   20,
	}
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4"))
	m.table = table.New(table.WithFocused(true), table.WithHeight(m.height))
	m.table.SetStyles(styles)
	m.show(0)
	return m
}

func (m *interactiveModel) show(idx int) {
	m.active = idx
	v := m.views[idx]
	// Rows must be cleared before the column count changes.
	m.table.SetRows(nil)
	m.table.SetColumns(v.columns)
	m.table.SetRows(v.rows)
	m.table.GotoTop()
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab", "right", "l":
			m.show((m.active + 1) % len(m.views))
			return m, nil
		case "shift+tab", "left", "h":
			m.show((m.active + len(m.views) - 1) % len(m.views))
			return m, nil
		}

	case tea.WindowSizeMsg:
		// Title, tabs, detail and help take eight lines.
		if h := msg.Height - 8; h > 3 {
			m.height = h
			m.table.SetHeight(h)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Tracer"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	b.WriteString(resultStyle.Render(fmt.Sprintf("%s -> %v", m.fn, m.result.Results)))
	b.WriteString("\n\n")

	for i, v := range m.views {
		label := fmt.Sprintf("%s (%d)", v.name, len(v.rows))
		if i == m.active {
			b.WriteString(activeTabStyle.Render(label))
		} else {
			b.WriteString(tabStyle.Render(label))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")

	v := m.views[m.active]
	if v.detail != nil && len(v.rows) > 0 {
		b.WriteString(detailStyle.Render(v.detail(m.table.Cursor())))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll • tab/←/→ switch table • q quit"))
	return b.String()
}

func buildViews(t tracer.Tables) []tableView {
	return []tableView{
		instructionView(t.Instructions),
		initMemoryView(t.InitMemory),
		executionView(t.Execution),
		frameView(t.Frames),
	}
}

func u(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func instructionView(entries []tables.InstructionTableEntry) tableView {
	v := tableView{
		name: "Instructions",
		columns: []table.Column{
			{Title: "FID", Width: 6},
			{Title: "IID", Width: 6},
			{Title: "Module", Width: 7},
			{Title: "Memory", Width: 7},
			{Title: "Instruction", Width: 40},
		},
	}
	for _, e := range entries {
		v.rows = append(v.rows, table.Row{
			u(uint64(e.FID)), u(uint64(e.IID)), u(uint64(e.ModuleID)), u(uint64(e.MemoryID)), e.Opcode.String(),
		})
	}
	return v
}

func initMemoryView(entries []tables.InitMemoryTableEntry) tableView {
	v := tableView{
		name: "Init Memory",
		columns: []table.Column{
			{Title: "Location", Width: 9},
			{Title: "Instance", Width: 9},
			{Title: "Offset", Width: 8},
			{Title: "Type", Width: 5},
			{Title: "Mut", Width: 4},
			{Title: "Value", Width: 20},
		},
	}
	for _, e := range entries {
		v.rows = append(v.rows, table.Row{
			e.LocationType.String(), u(uint64(e.InstanceID)), u(uint64(e.Offset)),
			e.ValueType.String(), strconv.FormatBool(e.IsMutable), fmt.Sprintf("%#x", e.Value),
		})
	}
	return v
}

func executionView(entries []tables.ExecutionTableEntry) tableView {
	v := tableView{
		name: "Execution",
		columns: []table.Column{
			{Title: "EID", Width: 6},
			{Title: "FID", Width: 6},
			{Title: "IID", Width: 6},
			{Title: "SP", Width: 5},
			{Title: "Pages", Width: 6},
			{Title: "Jump", Width: 6},
			{Title: "Step", Width: 14},
			{Title: "Instruction", Width: 24},
		},
	}
	for _, e := range entries {
		kind := "none"
		if e.Step != nil {
			kind = e.Step.Kind()
		}
		v.rows = append(v.rows, table.Row{
			u(uint64(e.EID)), u(uint64(e.Instruction.FID)), u(uint64(e.Instruction.IID)),
			u(uint64(e.SP)), u(uint64(e.AllocatedMemoryPages)), u(uint64(e.LastJumpEID)),
			kind, e.Instruction.Opcode.String(),
		})
	}
	v.detail = func(row int) string {
		if row < 0 || row >= len(entries) {
			return ""
		}
		return stepDetail(entries[row].Step)
	}
	return v
}

func stepDetail(step tables.StepInfo) string {
	switch s := step.(type) {
	case tables.CallHost:
		ret := "void"
		if s.Ret != nil {
			ret = u(*s.Ret)
		}
		return fmt.Sprintf("%s.%s%s args=%v ret=%s host=%d op=%d",
			s.Plugin, s.FunctionName, s.Signature, s.Args, ret, s.HostFunctionIdx, s.OpIndexInPlugin)
	case tables.Return:
		return fmt.Sprintf("drop=%d keep=%v values=%v", s.Drop, s.Keep, s.KeepValues)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%+v", s)
	}
}

func frameView(entries []tables.FrameTableEntry) tableView {
	v := tableView{
		name: "Frames",
		columns: []table.Column{
			{Title: "EID", Width: 8},
			{Title: "Last Jump", Width: 10},
			{Title: "Return", Width: 8},
			{Title: "Returned", Width: 9},
		},
	}
	for _, e := range entries {
		v.rows = append(v.rows, table.Row{
			u(uint64(e.EID)), u(uint64(e.LastJumpEID)), u(uint64(e.ReturnEID)), strconv.FormatBool(e.Returned),
		})
	}
	return v
}

func runInteractive(filename, fn string, res *runtime.TwoPassResult) error {
	p := tea.NewProgram(newInteractiveModel(filename, fn, res), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
