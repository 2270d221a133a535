package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/registrar/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/registrar/internal/account"
	accountStore "github.com/MrJamesThe3rd/registrar/internal/account/store"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	auditStore "github.com/MrJamesThe3rd/registrar/internal/auditlog/store"
	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/registrar/internal/catalog/store"
	"github.com/MrJamesThe3rd/registrar/internal/config"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/registrar/internal/matching/store"
	"github.com/MrJamesThe3rd/registrar/internal/notify"
	"github.com/MrJamesThe3rd/registrar/internal/report"
	reportStore "github.com/MrJamesThe3rd/registrar/internal/report/store"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
	txStore "github.com/MrJamesThe3rd/registrar/internal/transaction/store"
)

type model struct {
	accountService *account.Service
	txService      *transaction.Service
	reportService  *report.Service
	catalogService *catalog.Service
	aliasService   *matching.Service

	session     *view.Session
	currentView View

	loginView     view.LoginModel
	queueView     view.QueueModel
	dashboardView view.DashboardModel
	importView    view.ImportModel
}

type View int

const (
	ViewLogin     View = 0
	ViewMenu      View = 1
	ViewQueue     View = 2
	ViewDashboard View = 3
	ViewImport    View = 4
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var sender notify.Sender = notify.LogSender{}
	if cfg.SendGrid.APIKey != "" {
		sender = notify.NewSendGrid(cfg.SendGrid.APIKey)
	}

	auditSvc := auditlog.NewService(auditStore.New(db))
	accountSvc := account.NewService(accountStore.New(db), auditSvc)
	catalogSvc := catalog.NewService(catalogStore.New(db), auditSvc)
	aliasSvc := matching.NewService(matchingStore.New(db), auditSvc)
	mailer := notify.NewMailer(accountSvc, sender, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
	txSvc := transaction.NewService(txStore.New(db), catalogSvc, mailer)
	reportSvc := report.NewService(reportStore.New(db), nil)

	return model{
		accountService: accountSvc,
		txService:      txSvc,
		reportService:  reportSvc,
		catalogService: catalogSvc,
		aliasService:   aliasSvc,
		currentView:    ViewLogin,
		loginView:      view.NewLoginModel(accountSvc),
	}
}

func (m model) Init() tea.Cmd {
	return m.loginView.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewQueue
				m.queueView = view.NewQueueModel(m.txService, *m.session)

				return m, m.queueView.Init()
			case "2":
				m.currentView = ViewDashboard
				m.dashboardView = view.NewDashboardModel(m.reportService, *m.session)

				return m, m.dashboardView.Init()
			case "3":
				if !m.session.Actor.Is(identity.RoleAdmin) {
					return m, nil
				}

				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.catalogService, m.aliasService, *m.session)

				return m, m.importView.Init()
			case "l":
				m.session = nil
				m.currentView = ViewLogin
				m.loginView = view.NewLoginModel(m.accountService)

				return m, m.loginView.Init()
			}

			return m, nil
		}
	case view.LoggedInMsg:
		m.session = &msg.Session
		m.currentView = ViewMenu

		return m, nil
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewQueue:
		var newModel tea.Model
		newModel, cmd = m.queueView.Update(msg)
		m.queueView = newModel.(view.QueueModel)
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewMenu:
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewMenu:
		menu := fmt.Sprintf("Registrar Desk (%s, %s)\n\n", m.session.Name, m.session.Actor.Role) +
			"1. Request Queue\n" +
			"2. Dashboard\n"
		if m.session.Actor.Is(identity.RoleAdmin) {
			menu += "3. Import Price List\n"
		}

		menu += "\nl. Sign out\nq. Quit"

		return lipgloss.NewStyle().Padding(2).Render(menu)
	case ViewQueue:
		return m.queueView.View()
	case ViewDashboard:
		return m.dashboardView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
