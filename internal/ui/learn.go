package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
)

// LearnModel is the learning view: a module list on the left and the active module,
// its topic explanation and recommended videos on the right.
//
// Built with [NewCreateModel] it first generates the curriculum, showing progress updates
// from the [tasks.PathEngine] while it waits.
type LearnModel struct {
	ctx     context.Context
	engine  *tasks.PathEngine
	request tasks.CreateRequest
	opts    curriculum.SessionOptions

	session    *curriculum.LearningSession
	modules    list.Model
	detail     viewport.Model
	spinner    spinner.Model
	subtopic   int
	videos     map[string]curriculum.VideoResult
	loading    map[string]bool
	explaining bool

	progressChan chan tasks.ProgressUpdate
	outcome      chan pathCreated
	progress     tasks.ProgressUpdate
	result       *tasks.CreateResult

	width  int
	height int
	notice string
	err    error
	help   help.Model
	keys   keyMap
}

func newLearnModel(ctx context.Context) *LearnModel {
	return &LearnModel{
		ctx:     ctx,
		detail:  viewport.New(60, 20),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.selected)),
		videos:  make(map[string]curriculum.VideoResult),
		loading: make(map[string]bool),
		width:   100,
		height:  30,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// NewLearnModel opens the learning view over an existing session.
func NewLearnModel(ctx context.Context, session *curriculum.LearningSession) *LearnModel {
	m := newLearnModel(ctx)
	m.setSession(session)
	return m
}

// NewCreateModel generates a curriculum for req and then opens the learning view over it.
func NewCreateModel(ctx context.Context, engine *tasks.PathEngine, req tasks.CreateRequest, opts curriculum.SessionOptions) *LearnModel {
	m := newLearnModel(ctx)
	m.engine = engine
	m.request = req
	m.opts = opts
	return m
}

// Session returns the learning session, nil while the curriculum is still being generated.
func (m *LearnModel) Session() *curriculum.LearningSession { return m.session }

// Result returns the generation result when the model was built with [NewCreateModel].
func (m *LearnModel) Result() *tasks.CreateResult { return m.result }

// Err returns the generation error, if any.
func (m *LearnModel) Err() error { return m.err }

func (m *LearnModel) setSession(s *curriculum.LearningSession) {
	m.session = s
	m.modules = list.New(m.items(), list.NewDefaultDelegate(), 0, 0)
	m.modules.Title = s.Curriculum().Title
	m.modules.SetShowHelp(false)
	m.modules.SetFilteringEnabled(false)
	m.resize()
	m.refreshDetail()
}

func (m *LearnModel) items() []list.Item {
	c := m.session.Curriculum()
	items := make([]list.Item, len(c.Modules))
	for i, mod := range c.Modules {
		items[i] = moduleItem{module: mod, done: m.session.IsComplete(mod.ID)}
	}
	return items
}

func (m *LearnModel) resize() {
	left := max(30, m.width/3)
	if m.session != nil {
		m.modules.SetSize(left, m.height-6)
	}
	m.detail.Width = max(20, m.width-left-4)
	m.detail.Height = max(5, m.height-6)
}

// Init starts generation, or loads videos for the first module when the session already exists.
func (m *LearnModel) Init() tea.Cmd {
	if m.session == nil {
		return tea.Batch(m.spinner.Tick, m.startCreate())
	}
	return m.fetchVideos()
}

func (m *LearnModel) busy() bool {
	return (m.session == nil && m.err == nil) || m.explaining
}

// Update handles incoming messages and updates the model state.
func (m *LearnModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		if m.session != nil {
			m.refreshDetail()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.explaining {
			m.refreshDetail()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m *LearnModel) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgPathCreated:
		data := msg.data.(pathCreated)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.result = data.result
		s, err := data.result.Session(m.opts)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.setSession(s)
		return m, m.fetchVideos()

	case MsgVideosFetched:
		data := msg.data.(videosFetched)
		delete(m.loading, data.moduleID)
		m.videos[data.moduleID] = data.result
		m.refreshDetail()

	case MsgExplained:
		data := msg.data.(explained)
		m.explaining = false
		if errors.Is(data.err, shared.ErrRequestInFlight) {
			m.notice = "An explanation is already loading."
		}
		m.refreshDetail()
	}
	return m, nil
}

func (m *LearnModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	if m.session == nil {
		return m, nil
	}
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.next):
		m.moveSubtopic(1)
	case key.Matches(msg, m.keys.prev):
		m.moveSubtopic(-1)
	case key.Matches(msg, m.keys.explain):
		return m, m.explain()
	case key.Matches(msg, m.keys.complete):
		m.session.ToggleComplete()
		m.modules.SetItems(m.items())
	case msg.String() == "pgup" || msg.String() == "pgdown":
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	default:
		before := m.modules.Index()
		var cmd tea.Cmd
		m.modules, cmd = m.modules.Update(msg)
		if i := m.modules.Index(); i != before {
			if err := m.session.Select(i); err != nil {
				m.notice = shared.UserMessage(err)
			}
			m.subtopic = 0
			m.refreshDetail()
			return m, tea.Batch(cmd, m.fetchVideos())
		}
		return m, cmd
	}

	m.refreshDetail()
	return m, nil
}

func (m *LearnModel) moveSubtopic(delta int) {
	_, mod := m.session.Active()
	if n := len(mod.Subtopics); n > 0 {
		m.subtopic = (m.subtopic + delta + n) % n
	}
}

// explain toggles the selected subtopic's explanation. Closing is immediate; opening runs in a command.
func (m *LearnModel) explain() tea.Cmd {
	_, mod := m.session.Active()
	if len(mod.Subtopics) == 0 {
		return nil
	}
	sub := mod.Subtopics[min(m.subtopic, len(mod.Subtopics)-1)]

	if e := m.session.Explanation(); e.Open && e.Subtopic == sub {
		_, _ = m.session.ToggleExplanation(m.ctx, sub)
		m.refreshDetail()
		return nil
	}

	m.explaining = true
	m.refreshDetail()
	s, ctx := m.session, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		e, err := s.ToggleExplanation(ctx, sub)
		return explainedMsg(e, err)
	})
}

// fetchVideos loads the active module's videos unless a good result is already on screen.
// Failed lookups are retried when the module is revisited.
func (m *LearnModel) fetchVideos() tea.Cmd {
	_, mod := m.session.Active()
	if res, ok := m.videos[mod.ID]; (ok && res.Notice == "") || m.loading[mod.ID] {
		return nil
	}
	m.loading[mod.ID] = true

	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return videosFetchedMsg(mod.ID, s.ModuleVideos(ctx, mod))
	}
}

func (m *LearnModel) startCreate() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.outcome = make(chan pathCreated, 1)

	progress, outcome := m.progressChan, m.outcome
	go func() {
		result, err := m.engine.Create(m.ctx, progress, m.request)
		outcome <- pathCreated{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *LearnModel) waitForProgress() tea.Cmd {
	progress, outcome := m.progressChan, m.outcome
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		o := <-outcome
		return pathCreatedMsg(o.result, o.err)
	}
}

func (m *LearnModel) refreshDetail() {
	_, mod := m.session.Active()

	var b strings.Builder
	b.WriteString(styles.selected.Render(mod.Title) + "\n")
	if mod.Description != "" {
		b.WriteString(mod.Description + "\n")
	}
	if mod.EstimatedMinutes != nil {
		b.WriteString(styles.help.Render(fmt.Sprintf("Estimated: %d min", *mod.EstimatedMinutes)) + "\n")
	}

	b.WriteString("\n" + styles.ok.Render("Subtopics") + "\n")
	for i, sub := range mod.Subtopics {
		if i == m.subtopic {
			b.WriteString(styles.selected.Render("> "+sub) + "\n")
		} else {
			b.WriteString("  " + sub + "\n")
		}
	}

	if e := m.session.Explanation(); e.Open {
		text := e.Text
		if text == "" {
			text = m.spinner.View() + " Loading explanation..."
		}
		if e.Failed {
			text = styles.err.Render(text)
		}
		panel := styles.panel.Width(max(10, m.detail.Width-4)).Render(e.Subtopic + "\n\n" + text)
		b.WriteString("\n" + panel + "\n")
	}

	b.WriteString("\n" + styles.ok.Render("Recommended videos") + "\n")
	res, ok := m.videos[mod.ID]
	switch {
	case m.loading[mod.ID] || !ok:
		b.WriteString(styles.help.Render("Loading videos...") + "\n")
	case res.Notice != "":
		b.WriteString(styles.warn.Render(res.Notice) + "\n")
	case len(res.Videos) == 0:
		b.WriteString(styles.help.Render("No videos found.") + "\n")
	default:
		for _, v := range res.Videos {
			line := "• " + v.Title
			if v.ChannelTitle != "" {
				line += " (" + v.ChannelTitle + ")"
			}
			b.WriteString(line + "\n  " + styles.help.Render(v.URL) + "\n")
		}
	}

	m.detail.SetContent(b.String())
}

// View renders the generation progress or the learning view.
func (m *LearnModel) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %s\n\nPress q to quit", shared.UserMessage(m.err)))
	}

	if m.session == nil {
		title := styles.title.Render("Building your learning path")
		message := m.progress.Message
		if message == "" {
			message = "Starting..."
		}
		return fmt.Sprintf("%s\n\n%s %s\n\n%s", title, m.spinner.View(), message, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}

	c := m.session.Curriculum()
	done, total := m.session.Progress()
	header := styles.help.Render(fmt.Sprintf("%d/%d modules complete • %s hours", done, total, c.TotalHours()))

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.modules.View(), "  ", m.detail.View())

	var notice string
	if m.notice != "" {
		notice = "\n" + styles.warn.Render(m.notice)
	}

	subtopics := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next subtopic"))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, subtopics, m.keys.explain, m.keys.complete, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n\n%s", header, body, notice, helpView)
}
