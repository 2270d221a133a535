package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type queueState int

const (
	queueStateBrowse queueState = iota
	queueStateAction
)

// queueFilters are cycled with f; nil shows every status.
var queueFilters = []*transaction.Status{
	nil,
	new(transaction.StatusSubmitted),
	new(transaction.StatusScheduled),
	new(transaction.StatusReady),
	new(transaction.StatusClaimed),
	new(transaction.StatusRejected),
}

// action is the lifecycle move an operator picked for the selected row.
type action struct {
	key   string
	label string
	to    transaction.Status
}

var actions = map[string]action{
	"s": {key: "s", label: "Schedule", to: transaction.StatusScheduled},
	"r": {key: "r", label: "Mark ready", to: transaction.StatusReady},
	"c": {key: "c", label: "Release", to: transaction.StatusClaimed},
	"x": {key: "x", label: "Reject", to: transaction.StatusRejected},
}

type QueueModel struct {
	CommonModel
	txService *transaction.Service
	session   Session

	state     queueState
	table     table.Model
	txs       []*transaction.Transaction
	filterIdx int

	form    *huh.Form
	pending action
	date    string
	remarks string

	loading bool
	err     error
	status  string
}

func NewQueueModel(txSvc *transaction.Service, session Session) QueueModel {
	columns := []table.Column{
		{Title: "Ref", Width: 10},
		{Title: "Submitted", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Request", Width: 36},
		{Title: "Total", Width: 10},
		{Title: "Pickup", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return QueueModel{
		txService: txSvc,
		session:   session,
		table:     t,
		filterIdx: 1,
		loading:   true,
	}
}

func (m QueueModel) Title() string { return "Request Queue" }
func (m QueueModel) ShortHelp() string {
	if m.state == queueStateAction {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | f: filter | s: schedule | r: ready | c: release | x: reject | u: refresh"
}

func (m QueueModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case queueLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case queueActionMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("%s failed: %v", msg.action.label, msg.err))
		} else {
			m.status = successStyle.Render(fmt.Sprintf("%s: %s is now %s", msg.action.label, shortRef(msg.tx), msg.tx.Status))
		}

		m.state = queueStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case queueStateBrowse:
		return m.updateBrowse(msg)
	case queueStateAction:
		return m.updateAction(msg)
	}

	return m, nil
}

func (m QueueModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch k := keyMsg.String(); k {
		case "esc":
			return m, Back
		case "u":
			m.loading = true
			return m, m.loadCmd()
		case "f":
			m.filterIdx = (m.filterIdx + 1) % len(queueFilters)
			m.loading = true

			return m, m.loadCmd()
		case "s", "r", "c", "x":
			return m.startAction(actions[k])
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m QueueModel) selected() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m QueueModel) startAction(a action) (tea.Model, tea.Cmd) {
	tx := m.selected()
	if tx == nil {
		return m, nil
	}

	if !tx.Status.CanTransitionTo(a.to) {
		m.status = errorStyle.Render(fmt.Sprintf("%s cannot move from %s to %s", shortRef(tx), tx.Status, a.to))
		return m, nil
	}

	m.pending = a
	m.remarks = ""
	m.date = time.Now().AddDate(0, 0, 3).Format(time.DateOnly)

	fields := []huh.Field{}

	if a.to == transaction.StatusScheduled {
		fields = append(fields, huh.NewInput().
			Key("date").
			Title("Pickup date").
			Placeholder("YYYY-MM-DD").
			Value(&m.date).
			Validate(func(s string) error {
				if _, err := time.Parse(time.DateOnly, s); err != nil {
					return fmt.Errorf("use YYYY-MM-DD")
				}
				return nil
			}))
	}

	fields = append(fields, huh.NewText().
		Key("remarks").
		Title("Remarks").
		Value(&m.remarks).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("remarks are required")
			}
			return nil
		}))

	m.form = huh.NewForm(huh.NewGroup(fields...)).WithWidth(45).WithShowHelp(false)
	m.state = queueStateAction
	m.table.Blur()

	return m, m.form.Init()
}

func (m QueueModel) updateAction(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = queueStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.actionCmd()
}

func (m QueueModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading requests...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	label := "All"
	if f := queueFilters[m.filterIdx]; f != nil {
		label = string(*f)
	}

	header := fmt.Sprintf("Signed in as %s (%s) | [f] Status: %s | %d requests",
		m.session.Name, m.session.Actor.Role, activeStyle(label), len(m.txs))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == queueStateAction && m.form != nil {
		detail := ""
		if tx := m.selected(); tx != nil {
			detail = fmt.Sprintf("%s\n%s\nTotal %s", shortRef(tx), describe(tx), FormatAmount(tx.TotalAmount))
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("%s\n\n%s\n\n%s", m.pending.label, detail, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *QueueModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		rows = append(rows, table.Row{
			shortRef(tx),
			FormatDate(&tx.CreatedAt),
			string(tx.Status),
			describe(tx),
			FormatAmount(tx.TotalAmount),
			FormatDate(tx.ScheduledFor),
		})
	}

	m.table.SetRows(rows)
}

func shortRef(tx *transaction.Transaction) string {
	return strings.ToUpper(tx.ID.String()[:8])
}

// describe summarises what was requested in one line.
func describe(tx *transaction.Transaction) string {
	if tx.IsPackage() {
		return "Package: " + tx.PackageName
	}

	parts := make([]string, len(tx.Items))
	for i, item := range tx.Items {
		parts[i] = fmt.Sprintf("%dx %s", item.Quantity, item.CredentialName)
	}

	return strings.Join(parts, ", ")
}

// Messages

type queueLoadedMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m QueueModel) loadCmd() tea.Cmd {
	filter := transaction.ListFilter{Status: queueFilters[m.filterIdx]}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.List(ctx, m.session.Actor, filter)

		return queueLoadedMsg{txs: txs, err: err}
	}
}

type queueActionMsg struct {
	action action
	tx     *transaction.Transaction
	err    error
}

func (m QueueModel) actionCmd() tea.Cmd {
	tx := m.selected()
	if tx == nil {
		return nil
	}

	// Bound values live on the model copy that built the form; read them back from it.
	a, actor := m.pending, m.session.Actor
	date, remarks := m.form.GetString("date"), m.form.GetString("remarks")

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var (
			updated *transaction.Transaction
			err     error
		)

		switch a.to {
		case transaction.StatusScheduled:
			d, _ := time.Parse(time.DateOnly, date)
			updated, err = m.txService.Schedule(ctx, actor, tx.ID, transaction.ScheduleParams{Date: d, Remarks: remarks})
		case transaction.StatusReady:
			updated, err = m.txService.MarkReady(ctx, actor, tx.ID, remarks)
		case transaction.StatusClaimed:
			updated, err = m.txService.Claim(ctx, actor, tx.ID, remarks)
		case transaction.StatusRejected:
			updated, err = m.txService.Reject(ctx, actor, tx.ID, remarks)
		case transaction.StatusSubmitted:
			err = fmt.Errorf("cannot move back to %s", a.to)
		}

		if err != nil {
			return queueActionMsg{action: a, tx: tx, err: err}
		}

		return queueActionMsg{action: a, tx: updated}
	}
}
