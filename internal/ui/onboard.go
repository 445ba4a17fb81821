package ui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/onboarding"
	"github.com/desertthunder/modulearn/internal/shared"
)

const msgStepIncomplete = "Please answer every question on this page to continue."

var stepTitles = [onboarding.TotalSteps + 1]string{
	1: "About you",
	2: "Education level",
	3: "Education details",
	4: "Goals and learning style",
}

var genderLabels = map[string]string{
	"male":              "Male",
	"female":            "Female",
	"other":             "Other",
	"prefer_not_to_say": "Prefer not to say",
}

// row is one selectable line of a wizard page.
type row struct {
	group    string
	label    string
	selected bool
	input    bool
	apply    func() error
}

// OnboardModel runs the four-step onboarding wizard in the terminal.
type OnboardModel struct {
	ctx    context.Context
	wizard *onboarding.Wizard
	save   onboarding.Saver

	cursor int
	age    textinput.Model
	notice string
	route  models.Route
	err    error

	help help.Model
	keys keyMap
}

// NewOnboardModel creates the wizard model. save persists the finished profile.
func NewOnboardModel(ctx context.Context, save onboarding.Saver) *OnboardModel {
	age := textinput.New()
	age.Placeholder = "Age"
	age.CharLimit = 3
	age.Width = 6

	return &OnboardModel{
		ctx:    ctx,
		wizard: onboarding.New(),
		save:   save,
		age:    age,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Route is where the user goes next; empty until the profile is saved.
func (m *OnboardModel) Route() models.Route { return m.route }

// Err returns the last save error.
func (m *OnboardModel) Err() error { return m.err }

// Answers returns what has been collected so far.
func (m *OnboardModel) Answers() onboarding.Answers { return m.wizard.Answers() }

func (m *OnboardModel) Init() tea.Cmd {
	return nil
}

func (m *OnboardModel) rows() []row {
	a := m.wizard.Answers()
	var rows []row
	add := func(group, label string, selected bool, apply func() error) {
		rows = append(rows, row{group: group, label: label, selected: selected, apply: apply})
	}

	switch m.wizard.Step() {
	case 1:
		for _, l := range onboarding.Languages {
			add("Languages", l, slices.Contains(a.Languages, l), func() error { return m.wizard.ToggleLanguage(l) })
		}
		for _, g := range onboarding.Genders {
			add("Gender", genderLabels[g], a.Gender == g, func() error { return m.wizard.SetGender(g) })
		}
		rows = append(rows, row{group: "Age", label: "Age", input: true})
	case 2:
		add("Education level", "School", a.EducationLevel == models.LevelSchool, func() error {
			return m.wizard.SetEducationLevel(models.LevelSchool)
		})
		add("Education level", "College", a.EducationLevel == models.LevelCollege, func() error {
			return m.wizard.SetEducationLevel(models.LevelCollege)
		})
	case 3:
		if a.EducationLevel == models.LevelSchool {
			for c := 1; c <= onboarding.MaxClass; c++ {
				add("Class", fmt.Sprintf("Class %d", c), a.Class == strconv.Itoa(c), func() error { return m.wizard.SetClass(c) })
			}
			break
		}
		for _, f := range onboarding.CollegeFields {
			add("Field", f, a.Field == f, func() error { return m.wizard.SetField(f) })
		}
		for _, c := range onboarding.CoursesFor(a.Field) {
			add("Course", c, a.Course == c, func() error { return m.wizard.SetCourse(c) })
		}
		if a.Field == "Engineering" && a.Course != "" {
			for _, d := range onboarding.EngineeringDomains {
				add("Domain", d, a.Domain == d, func() error { return m.wizard.SetDomain(d) })
			}
		}
	case 4:
		for _, g := range onboarding.Goals {
			add("Goals", g, slices.Contains(a.Goals, g), func() error { return m.wizard.ToggleGoal(g) })
		}
		for _, s := range onboarding.LearningStyles {
			add("Learning styles", s, slices.Contains(a.LearningStyles, s), func() error { return m.wizard.ToggleLearningStyle(s) })
		}
	}
	return rows
}

// Update handles incoming messages and updates the model state.
func (m *OnboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case Msg:
		if msg.kind != MsgProfileSaved {
			return m, nil
		}
		data := msg.data.(profileSaved)
		if data.err != nil {
			m.err = data.err
			m.notice = shared.UserMessage(data.err)
			return m, nil
		}
		m.err = nil
		m.route = data.route
		return m, tea.Quit
	}
	return m, nil
}

func (m *OnboardModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	if m.wizard.Saving() {
		return m, nil
	}

	rows := m.rows()
	m.cursor = min(m.cursor, len(rows)-1)

	switch {
	case key.Matches(msg, m.keys.up):
		m.moveCursor(-1, len(rows))
	case key.Matches(msg, m.keys.down):
		m.moveCursor(1, len(rows))
	case key.Matches(msg, m.keys.next):
		return m, m.advance()
	case key.Matches(msg, m.keys.prev):
		m.wizard.Back()
		m.cursor = 0
		m.notice = ""
		m.syncFocus()
	case rows[m.cursor].input:
		return m.updateAge(msg)
	case key.Matches(msg, m.keys.toggle):
		if err := rows[m.cursor].apply(); err != nil {
			m.notice = shared.UserMessage(err)
		} else {
			m.notice = ""
		}
	}
	return m, nil
}

func (m *OnboardModel) moveCursor(delta, n int) {
	if n == 0 {
		return
	}
	m.cursor = (m.cursor + delta + n) % n
	m.syncFocus()
}

// syncFocus focuses the age field only while the cursor is on it.
func (m *OnboardModel) syncFocus() {
	rows := m.rows()
	if m.cursor < len(rows) && rows[m.cursor].input {
		m.age.Focus()
		return
	}
	m.age.Blur()
}

func (m *OnboardModel) updateAge(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.age, cmd = m.age.Update(msg)

	if v := strings.TrimSpace(m.age.Value()); v != "" {
		if err := m.wizard.SetAge(v); err != nil {
			m.notice = shared.UserMessage(err)
		} else {
			m.notice = ""
		}
	}
	return m, cmd
}

func (m *OnboardModel) advance() tea.Cmd {
	if !m.wizard.Valid() {
		m.notice = msgStepIncomplete
		return nil
	}
	m.notice = ""

	if m.wizard.Step() < onboarding.TotalSteps {
		if err := m.wizard.Next(); err != nil {
			m.notice = shared.UserMessage(err)
			return nil
		}
		m.cursor = 0
		m.syncFocus()
		return nil
	}

	ctx, w, save := m.ctx, m.wizard, m.save
	return func() tea.Msg {
		route, err := w.Finish(ctx, save)
		return profileSavedMsg(route, err)
	}
}

// View renders the current wizard page.
func (m *OnboardModel) View() string {
	step := m.wizard.Step()

	var b strings.Builder
	b.WriteString(styles.title.Render("Welcome! Let's personalize your learning"))
	b.WriteString("\n")
	b.WriteString(styles.help.Render(fmt.Sprintf("Step %d of %d: %s", step, onboarding.TotalSteps, stepTitles[step])))
	b.WriteString("\n")

	group := ""
	for i, r := range m.rows() {
		if r.group != group {
			group = r.group
			b.WriteString("\n" + styles.ok.Render(group) + "\n")
		}

		cursor := "  "
		if i == m.cursor {
			cursor = styles.selected.Render("> ")
		}
		if r.input {
			b.WriteString(cursor + m.age.View() + "\n")
			continue
		}

		mark := "[ ] "
		if r.selected {
			mark = "[x] "
		}
		b.WriteString(cursor + mark + r.label + "\n")
	}

	if m.wizard.Saving() {
		b.WriteString("\n" + styles.warn.Render("Saving your profile...") + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + styles.err.Render(m.notice) + "\n")
	}

	next := m.keys.next
	if step == onboarding.TotalSteps {
		next = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "finish"))
	}
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.toggle, next, m.keys.prev, m.keys.quit}))
	return b.String()
}
