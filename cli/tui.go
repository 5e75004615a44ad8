package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keyfold/keyfold/vault"
)

const clipboardTTL = 30 * time.Second

// form field indexes
const (
	fieldService = iota
	fieldUsername
	fieldPassword
	fieldNotes
	fieldCount
)

type model struct {
	store   *vault.Store
	records []vault.Record
	cursor  int
	state   string // "list", "view", "form", "confirmDelete"
	inputs  []textinput.Model
	editing string // service being edited; empty means the form adds
	reveal  bool
	status  string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type savedMsg struct{ err error }
type clipboardClearMsg struct{}

// New builds the TUI model over an unlocked store.
func New(store *vault.Store) tea.Model {
	return model{
		store:   store,
		records: store.Records(),
		state:   "list",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("save failed: " + msg.err.Error())
		} else {
			m.status = statusStyle.Render("Saved.")
		}
		m.records = m.store.Records()
		return m, nil
	case clipboardClearMsg:
		clipboard.WriteAll("")
		m.status = statusStyle.Render("Clipboard cleared.")
		return m, nil
	}

	switch m.state {
	case "list":
		return m.updateList(msg)
	case "view":
		return m.updateView(msg)
	case "form":
		return m.updateForm(msg)
	case "confirmDelete":
		return m.updateConfirmDelete(msg)
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case "list":
		return m.viewList()
	case "view":
		return m.viewRecord()
	case "form":
		return m.viewForm()
	case "confirmDelete":
		return m.viewConfirmDelete()
	}
	return ""
}

// save persists the vault off the render loop.
func (m model) save() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return savedMsg{err: store.Save()}
	}
}

func copyToClipboard(secret string) (string, tea.Cmd) {
	if err := clipboard.WriteAll(secret); err != nil {
		return errorStyle.Render("clipboard unavailable"), nil
	}
	status := statusStyle.Render(fmt.Sprintf("Password copied, clearing in %s.", clipboardTTL))
	return status, tea.Tick(clipboardTTL, func(time.Time) tea.Msg {
		return clipboardClearMsg{}
	})
}

// --- list ---

func (m model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if len(m.records) > 0 {
			m.reveal = false
			m.state = "view"
		}
	case "a":
		m.startForm(vault.Record{}, false)
	case "e":
		if len(m.records) > 0 {
			m.startForm(m.records[m.cursor], true)
		}
	case "d":
		if len(m.records) > 0 {
			m.state = "confirmDelete"
		}
	case "c":
		if len(m.records) > 0 {
			var cmd tea.Cmd
			m.status, cmd = copyToClipboard(m.records[m.cursor].Password)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) viewList() string {
	s := titleStyle.Render("keyfold") + "\n\n"
	if len(m.records) == 0 {
		s += dimStyle.Render("No records yet. Press 'a' to add one.") + "\n"
	}
	for i, rec := range m.records {
		line := fmt.Sprintf("%-30s  %-20s", rec.Service, rec.Username)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		s += line + "\n"
	}
	if m.status != "" {
		s += "\n" + m.status
	}
	s += "\n" + dimStyle.Render("j/k move · enter show · a add · e edit · d delete · c copy · q quit")
	return s
}

// --- view ---

func (m model) updateView(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc", "q":
		m.reveal = false
		m.state = "list"
	case "v":
		m.reveal = !m.reveal
	case "c":
		var cmd tea.Cmd
		m.status, cmd = copyToClipboard(m.records[m.cursor].Password)
		return m, cmd
	}
	return m, nil
}

func (m model) viewRecord() string {
	rec := m.records[m.cursor]
	password := "********"
	if m.reveal {
		password = rec.Password
	}
	s := titleStyle.Render(rec.Service) + "\n\n"
	s += fmt.Sprintf("Username: %s\nPassword: %s\nNotes:    %s\n", rec.Username, password, rec.Notes)
	if m.status != "" {
		s += "\n" + m.status
	}
	s += "\n" + dimStyle.Render("v reveal · c copy · esc back")
	return s
}

// --- form (add/edit) ---

func (m *model) startForm(rec vault.Record, editing bool) {
	m.inputs = make([]textinput.Model, fieldCount)
	placeholders := [fieldCount]string{"Service", "Username", "Password", "Notes"}
	values := [fieldCount]string{rec.Service, rec.Username, rec.Password, rec.Notes}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.SetValue(values[i])
		if i == fieldPassword {
			ti.EchoMode = textinput.EchoPassword
		}
		m.inputs[i] = ti
	}
	m.editing = ""
	first := fieldService
	if editing {
		// The service name is the record key; renames are delete+add.
		m.editing = rec.Service
		first = fieldUsername
	}
	m.inputs[first].Focus()
	m.status = ""
	m.state = "form"
}

// clearForm wipes the input fields so the password does not linger in them.
func (m *model) clearForm() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.inputs = nil
}

func (m model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.clearForm()
			m.state = "list"
			return m, nil
		case "tab", "shift+tab", "down", "up":
			m.focusNext(key.String() == "shift+tab" || key.String() == "up")
			return m, nil
		case "enter":
			return m.submitForm()
		case "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	for i := range m.inputs {
		if m.inputs[i].Focused() {
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			break
		}
	}
	return m, cmd
}

func (m *model) focusNext(backward bool) {
	first := fieldService
	if m.editing != "" {
		first = fieldUsername
	}
	n := len(m.inputs)
	for i := first; i < n; i++ {
		if m.inputs[i].Focused() {
			m.inputs[i].Blur()
			next := i + 1
			if backward {
				next = i - 1
			}
			if next < first {
				next = n - 1
			}
			if next >= n {
				next = first
			}
			m.inputs[next].Focus()
			return
		}
	}
	m.inputs[first].Focus()
}

func (m model) submitForm() (tea.Model, tea.Cmd) {
	service := m.inputs[fieldService].Value()
	username := m.inputs[fieldUsername].Value()
	password := m.inputs[fieldPassword].Value()
	notes := m.inputs[fieldNotes].Value()

	var err error
	if m.editing != "" {
		err = m.store.Update(m.editing, username, password, notes)
	} else {
		if service == "" {
			m.status = errorStyle.Render("service name is required")
			return m, nil
		}
		err = m.store.Add(service, username, password, notes)
	}
	switch {
	case errors.Is(err, vault.ErrDuplicateService):
		m.status = errorStyle.Render("a record for that service already exists")
		return m, nil
	case err != nil:
		m.status = errorStyle.Render(err.Error())
		return m, nil
	}

	m.clearForm()
	m.records = m.store.Records()
	m.state = "list"
	return m, m.save()
}

func (m model) viewForm() string {
	title := "Add record"
	if m.editing != "" {
		title = "Edit " + m.editing
	}
	s := titleStyle.Render(title) + "\n\n"
	for i := range m.inputs {
		if m.editing != "" && i == fieldService {
			continue
		}
		s += fmt.Sprintf("%-9s %s\n", m.inputs[i].Placeholder+":", m.inputs[i].View())
	}
	if m.status != "" {
		s += "\n" + m.status
	}
	s += "\n" + dimStyle.Render("tab next field · enter save · esc cancel")
	return s
}

// --- delete confirmation ---

func (m model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y":
		service := m.records[m.cursor].Service
		if err := m.store.Delete(service); err != nil {
			m.status = errorStyle.Render(err.Error())
			m.state = "list"
			return m, nil
		}
		m.records = m.store.Records()
		if m.cursor >= len(m.records) && m.cursor > 0 {
			m.cursor--
		}
		m.state = "list"
		return m, m.save()
	case "n", "esc":
		m.state = "list"
	}
	return m, nil
}

func (m model) viewConfirmDelete() string {
	rec := m.records[m.cursor]
	s := titleStyle.Render("Delete record") + "\n\n"
	s += fmt.Sprintf("Delete %q? This cannot be undone.\n", rec.Service)
	s += "\n" + dimStyle.Render("y confirm · n cancel")
	return s
}
