package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	"github.com/MrJamesThe3rd/registrar/internal/importer"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStatePreview
	importStateImporting
	importStateResult
)

// ImportModel loads a credential price list and upserts it into the catalog.
type ImportModel struct {
	CommonModel
	catalog *catalog.Service
	aliases *matching.Service
	session Session

	state      importState
	filePicker filepicker.Model
	rows       []importer.Row
	renamed    int
	preview    list.Model

	status string
	err    error
}

func NewImportModel(catalogSvc *catalog.Service, aliases *matching.Service, session Session) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		catalog:    catalogSvc,
		aliases:    aliases,
		session:    session,
		filePicker: fp,
	}
}

func (m ImportModel) Title() string { return "Import Price List" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStatePreview {
		return "Enter: import all | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStatePreview {
			return m.updatePreview(msg)
		}

	case parsedMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.rows = msg.rows
		m.renamed = msg.renamed
		m.state = importStatePreview

		items := make([]list.Item, len(m.rows))
		for i, row := range m.rows {
			items[i] = rowItem{row: row}
		}

		m.preview = list.New(items, rowDelegate{}, 80, 20)
		m.preview.Title = fmt.Sprintf("%d credentials found, %d renamed by alias", len(m.rows), m.renamed)
		m.preview.SetShowStatusBar(false)
		m.preview.SetFilteringEnabled(false)
		m.preview.SetShowHelp(false)

		return m, nil

	case importDoneMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Created %d and updated %d credentials.", msg.result.Created, msg.result.Updated)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Reading %s...", path)

		return m, m.parseCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStatePreview, importStateResult:
		m.state = importStateFilePick
		m.rows = nil
		m.err = nil
		m.status = ""

		return m, nil
	case importStateFilePick, importStateImporting:
	}

	return m, Back
}

func (m ImportModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		m.state = importStateImporting
		m.status = "Importing..."

		return m, m.importCmd()
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select a price list (CSV with name and price columns):\n\n%s", m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStatePreview:
		return lipgloss.NewStyle().Padding(1).Render(m.preview.View())
	case importStateResult:
		style := successStyle
		if m.err != nil {
			style = errorStyle
		}

		return lipgloss.NewStyle().Padding(2).Render(style.Render(m.status) + "\n\n(Esc to go back)")
	}

	return ""
}

// Messages

type parsedMsg struct {
	rows    []importer.Row
	renamed int
	err     error
}

type importDoneMsg struct {
	result *catalog.ImportResult
	err    error
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parsedMsg{err: err}
		}
		defer f.Close()

		rows, err := importer.Parse(f)
		if err != nil {
			return parsedMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		rows, renamed, err := m.aliases.Normalize(ctx, rows)

		return parsedMsg{rows: rows, renamed: renamed, err: err}
	}
}

func (m ImportModel) importCmd() tea.Cmd {
	params := make([]catalog.CredentialParams, len(m.rows))
	for i, row := range m.rows {
		params[i] = catalog.CredentialParams{Name: row.Name, Price: row.Price}
	}

	actor := m.session.Actor

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.catalog.ImportCredentials(ctx, actor, params)

		return importDoneMsg{result: result, err: err}
	}
}

// Preview list

type rowItem struct {
	row importer.Row
}

func (i rowItem) Title() string       { return i.row.Name }
func (i rowItem) Description() string { return FormatAmount(i.row.Price) }
func (i rowItem) FilterValue() string { return i.row.Name }

type rowDelegate struct{}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(rowItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%sline %-4d %-40s %12s", cursor, item.row.Line, item.row.Name, FormatAmount(item.row.Price))
}
