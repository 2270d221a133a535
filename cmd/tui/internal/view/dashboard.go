package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/report"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

var buckets = []report.Bucket{report.BucketToday, report.BucketMonth, report.BucketYear}

type DashboardModel struct {
	CommonModel
	reports *report.Service
	session Session

	bucketIdx int
	mine      bool
	summary   *report.Summary
	loading   bool
	err       error
}

func NewDashboardModel(reports *report.Service, session Session) DashboardModel {
	return DashboardModel{
		reports: reports,
		session: session,
		mine:    session.Actor.Role == identity.RoleStaff,
		loading: true,
	}
}

func (m DashboardModel) Title() string     { return "Dashboard" }
func (m DashboardModel) ShortHelp() string { return "Esc: back | b: bucket | m: my departments | u: refresh" }

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		m.loading = false
		m.summary = msg.summary
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "b":
			m.bucketIdx = (m.bucketIdx + 1) % len(buckets)
		case "m":
			if m.session.Actor.Role != identity.RoleStaff {
				return m, nil
			}

			m.mine = !m.mine
		case "u":
		default:
			return m, nil
		}

		m.loading = true

		return m, m.loadCmd()
	}

	return m, nil
}

func (m DashboardModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	if m.loading {
		return style.Render("Loading summary...")
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	scope := "all departments"
	if m.mine {
		scope = "my departments"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Requests %s | [b] %s | [m] %s\n\n",
		m.summary.Start.Format("Jan 2, 2006"), activeStyle(string(m.summary.Bucket)), activeStyle(scope))

	box := lipgloss.NewStyle().
		Padding(0, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Align(lipgloss.Center)

	cells := make([]string, 0, len(transaction.Statuses)+1)
	for _, st := range transaction.Statuses {
		cells = append(cells, box.Render(fmt.Sprintf("%s\n%d", st, m.summary.Counts[st])))
	}

	cells = append(cells, box.Render(fmt.Sprintf("All\n%d", m.summary.Total)))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))

	return style.Render(b.String())
}

type summaryLoadedMsg struct {
	summary *report.Summary
	err     error
}

func (m DashboardModel) loadCmd() tea.Cmd {
	bucket := buckets[m.bucketIdx]

	var staffID *uuid.UUID
	if m.mine {
		staffID = &m.session.Actor.ID
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		sum, err := m.reports.Summary(ctx, bucket, staffID)

		return summaryLoadedMsg{summary: sum, err: err}
	}
}
