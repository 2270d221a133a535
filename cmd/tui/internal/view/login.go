package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/registrar/internal/account"
)

// LoggedInMsg carries the operator once credentials check out.
type LoggedInMsg struct {
	Session Session
}

type loginFailedMsg struct {
	err error
}

type LoginModel struct {
	CommonModel
	accounts *account.Service

	form     *huh.Form
	email    string
	password string
	err      error
	busy     bool
}

func NewLoginModel(accounts *account.Service) LoginModel {
	m := LoginModel{accounts: accounts}
	m.form = m.buildForm()

	return m
}

func (m *LoginModel) buildForm() *huh.Form {
	m.password = ""

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("email").
				Title("Email").
				Value(&m.email).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return fmt.Errorf("enter your registrar email")
					}
					return nil
				}),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.password),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m LoginModel) Title() string     { return "Sign in" }
func (m LoginModel) ShortHelp() string { return "Enter: next | Ctrl+C: quit" }

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if failed, ok := msg.(loginFailedMsg); ok {
		m.busy = false
		m.err = failed.err
		m.form = m.buildForm()

		return m, m.form.Init()
	}

	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.busy = true

	return m, m.loginCmd()
}

func (m LoginModel) View() string {
	content := "Registrar Staff Desk\n\n" + m.form.View()

	if m.busy {
		content += "\n" + faintStyle.Render("Signing in...")
	}

	if m.err != nil {
		content += "\n" + errorStyle.Render(m.err.Error())
	}

	return lipgloss.NewStyle().Padding(2).Render(content)
}

func (m LoginModel) loginCmd() tea.Cmd {
	email, password := m.form.GetString("email"), m.form.GetString("password")

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		acc, err := m.accounts.Authenticate(ctx, email, password)
		if err != nil {
			return loginFailedMsg{err: err}
		}

		if !acc.Role.IsStaffSide() {
			return loginFailedMsg{err: fmt.Errorf("the desk is for registrar staff only")}
		}

		return LoggedInMsg{Session: Session{Actor: acc.Actor(), Name: acc.Name}}
	}
}
