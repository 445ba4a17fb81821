package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
	tu "github.com/desertthunder/modulearn/internal/testing"
)

func press(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// drain runs cmd and feeds every resulting [Msg] back into m until nothing is left.
// Timer-driven messages such as spinner ticks are dropped.
func drain(t *testing.T, m tea.Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("command loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case Msg:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func testCurriculum() models.GeneratedCurriculum {
	return models.GeneratedCurriculum{
		Title:          "Intro to Rust",
		EducationLevel: models.LevelCollege,
		Modules: []models.CurriculumModule{
			{ID: "module_1", Title: "Ownership", EstimatedMinutes: models.Ptr(45), Subtopics: []string{"Moves", "Borrows"}},
			{ID: "module_2", Title: "Traits", EstimatedMinutes: models.Ptr(30), Subtopics: []string{"Impl blocks"}},
		},
	}
}

func newSession(t *testing.T, completion *tu.MockCompletion, videos *tu.MockVideos) *curriculum.LearningSession {
	t.Helper()
	opts := curriculum.SessionOptions{Owner: "u1", Explainer: curriculum.NewGenerator(completion, nil)}
	if videos != nil {
		opts.Videos = videos
	}
	s, err := curriculum.NewLearningSession(testCurriculum(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLearnModel(t *testing.T) {
	ctx := context.Background()

	t.Run("loads videos for the active module", func(t *testing.T) {
		videos := &tu.MockVideos{Videos: []models.Video{{ID: "abc", Title: "Ownership explained", ChannelTitle: "Rustacean", URL: models.WatchURL("abc")}}}
		m := NewLearnModel(ctx, newSession(t, &tu.MockCompletion{}, videos))
		drain(t, m, m.Init())

		view := m.View()
		for _, want := range []string{"Ownership explained", "Rustacean", "0/2 modules complete"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q", want)
			}
		}
		if n := len(videos.Queries()); n != 1 {
			t.Errorf("expected one search, got %d", n)
		}
	})

	t.Run("missing video key shows a notice", func(t *testing.T) {
		m := NewLearnModel(ctx, newSession(t, &tu.MockCompletion{}, nil))
		drain(t, m, m.Init())
		if !strings.Contains(m.View(), curriculum.NoticeVideosNotConfigured) {
			t.Error("expected not-configured notice")
		}
	})

	t.Run("explains the selected subtopic", func(t *testing.T) {
		completion := &tu.MockCompletion{Responses: []string{"Borrowing lends access without moving."}}
		m := NewLearnModel(ctx, newSession(t, completion, nil))

		m.Update(press("tab"))
		_, cmd := m.Update(press("enter"))
		drain(t, m, cmd)

		e := m.Session().Explanation()
		if !e.Open || e.Subtopic != "Borrows" || e.Text != "Borrowing lends access without moving." {
			t.Errorf("unexpected explanation %+v", e)
		}
		if !strings.Contains(m.View(), "Borrowing lends access") {
			t.Error("explanation should be rendered")
		}

		if _, cmd := m.Update(press("enter")); cmd != nil {
			t.Error("closing should not issue a request")
		}
		if m.Session().Explanation().Open {
			t.Error("second toggle should close the panel")
		}
		if n := completion.Calls(); n != 1 {
			t.Errorf("expected one completion call, got %d", n)
		}
	})

	t.Run("failed explanation", func(t *testing.T) {
		completion := &tu.MockCompletion{Err: shared.ErrServiceUnavailable}
		m := NewLearnModel(ctx, newSession(t, completion, nil))
		_, cmd := m.Update(press("enter"))
		drain(t, m, cmd)

		if !strings.Contains(m.View(), curriculum.ExplanationFailed) {
			t.Error("expected retry text")
		}
	})

	t.Run("moving modules", func(t *testing.T) {
		videos := &tu.MockVideos{}
		m := NewLearnModel(ctx, newSession(t, &tu.MockCompletion{}, videos))
		drain(t, m, m.Init())

		_, cmd := m.Update(press("down"))
		drain(t, m, cmd)

		if i, mod := m.Session().Active(); i != 1 || mod.ID != "module_2" {
			t.Errorf("expected module_2 active, got %d %s", i, mod.ID)
		}
		q := videos.Queries()
		if len(q) != 2 || q[1].Query != "Intro to Rust Traits Impl blocks" {
			t.Errorf("unexpected queries %+v", q)
		}
	})

	t.Run("mark complete", func(t *testing.T) {
		m := NewLearnModel(ctx, newSession(t, &tu.MockCompletion{}, nil))
		m.Update(press("c"))
		if !m.Session().IsComplete("module_1") {
			t.Error("module_1 should be complete")
		}
		if !strings.Contains(m.View(), "1/2 modules complete") {
			t.Error("header should show progress")
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewLearnModel(ctx, newSession(t, &tu.MockCompletion{}, nil))
		_, cmd := m.Update(press("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected QuitMsg")
		}
	})
}

func TestCreateModel(t *testing.T) {
	ctx := context.Background()
	generated := `{"title": "Intro to Rust", "modules": [{"title": "Ownership", "subtopics": ["Moves"]}]}`

	t.Run("generates then opens the session", func(t *testing.T) {
		completion := &tu.MockCompletion{Responses: []string{generated}}
		engine := tasks.NewPathEngine(nil, curriculum.NewGenerator(completion, nil), nil, nil)
		m := NewCreateModel(ctx, engine, tasks.CreateRequest{Topic: "Intro to Rust", Level: models.LevelSchool}, curriculum.SessionOptions{})

		if !strings.Contains(m.View(), "Building your learning path") {
			t.Error("expected progress view before generation")
		}
		drain(t, m, m.startCreate())

		if m.Err() != nil {
			t.Fatalf("unexpected error %v", m.Err())
		}
		if m.Session() == nil || m.Result().Curriculum.EducationLevel != models.LevelSchool {
			t.Fatalf("expected a school-level session, got %+v", m.Result())
		}
		if !strings.Contains(m.View(), "Ownership") {
			t.Error("learning view should list the module")
		}
	})

	t.Run("generation error", func(t *testing.T) {
		engine := tasks.NewPathEngine(nil, curriculum.NewGenerator(&tu.MockCompletion{}, nil), nil, nil)
		m := NewCreateModel(ctx, engine, tasks.CreateRequest{Topic: "Go", Level: models.LevelSchool}, curriculum.SessionOptions{})
		drain(t, m, m.startCreate())

		if !errors.Is(m.Err(), shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", m.Err())
		}
		if !strings.Contains(m.View(), "at least 5 characters") {
			t.Errorf("unexpected view %q", m.View())
		}
	})
}

// pick moves the cursor to the row labelled label and selects it.
func pick(t *testing.T, m *OnboardModel, label string) {
	t.Helper()
	for i, r := range m.rows() {
		if r.label == label {
			m.cursor = i
			m.syncFocus()
			m.Update(press(" "))
			return
		}
	}
	t.Fatalf("no row %q on step %d", label, m.wizard.Step())
}

func typeAge(m *OnboardModel, age string) {
	rows := m.rows()
	m.cursor = len(rows) - 1
	m.syncFocus()
	for _, r := range age {
		m.Update(press(string(r)))
	}
}

func TestOnboardModel(t *testing.T) {
	ctx := context.Background()

	t.Run("first page", func(t *testing.T) {
		m := NewOnboardModel(ctx, nil)
		rows := m.rows()
		if len(rows) != 13 || !rows[12].input {
			t.Fatalf("expected 8 languages, 4 genders and the age field, got %d rows", len(rows))
		}
		if !strings.Contains(m.View(), "Step 1 of 4") {
			t.Error("view should show the step")
		}
	})

	t.Run("incomplete step stays put", func(t *testing.T) {
		m := NewOnboardModel(ctx, nil)
		pick(t, m, "English")
		m.Update(press("tab"))

		if m.wizard.Step() != 1 {
			t.Errorf("expected step 1, got %d", m.wizard.Step())
		}
		if !strings.Contains(m.View(), msgStepIncomplete) {
			t.Error("expected incomplete notice")
		}
	})

	t.Run("toggle twice deselects", func(t *testing.T) {
		m := NewOnboardModel(ctx, nil)
		pick(t, m, "Hindi")
		pick(t, m, "Hindi")
		if len(m.Answers().Languages) != 0 {
			t.Errorf("expected no languages, got %v", m.Answers().Languages)
		}
	})

	complete := func(t *testing.T, m *OnboardModel) tea.Cmd {
		t.Helper()
		pick(t, m, "English")
		pick(t, m, "Female")
		typeAge(m, "19")
		m.Update(press("tab"))

		pick(t, m, "College")
		m.Update(press("tab"))

		pick(t, m, "Engineering")
		pick(t, m, "B.Tech")
		pick(t, m, "CSE")
		m.Update(press("tab"))

		pick(t, m, "Skill Building")
		pick(t, m, "Practical (Exercises)")
		_, cmd := m.Update(press("tab"))
		if cmd == nil {
			t.Fatal("finishing should issue a save")
		}
		return cmd
	}

	t.Run("full flow saves the profile", func(t *testing.T) {
		var saved []models.ProfileUpdate
		m := NewOnboardModel(ctx, func(ctx context.Context, u models.ProfileUpdate) error {
			saved = append(saved, u)
			return nil
		})

		cmd := complete(t, m)
		_, quit := m.Update(cmd())

		if m.Route() != models.RouteDashboard {
			t.Errorf("expected dashboard route, got %q", m.Route())
		}
		if quit == nil {
			t.Error("expected the program to quit after saving")
		}
		if len(saved) != 1 {
			t.Fatalf("expected one save, got %d", len(saved))
		}
		u := saved[0]
		if *u.Age != "19" || *u.Field != "Engineering" || *u.Domain != "CSE" || !*u.Onboarded || u.FullName != nil {
			t.Errorf("unexpected update %+v", u)
		}
	})

	t.Run("save failure keeps the wizard open", func(t *testing.T) {
		m := NewOnboardModel(ctx, func(ctx context.Context, u models.ProfileUpdate) error {
			return shared.ErrServiceUnavailable
		})

		cmd := complete(t, m)
		m.Update(cmd())

		if m.Route() != "" || !errors.Is(m.Err(), shared.ErrServiceUnavailable) {
			t.Errorf("unexpected result %q %v", m.Route(), m.Err())
		}
		if m.wizard.Step() != 4 {
			t.Errorf("expected to stay on step 4, got %d", m.wizard.Step())
		}
	})

	t.Run("school shows classes", func(t *testing.T) {
		m := NewOnboardModel(ctx, nil)
		pick(t, m, "English")
		pick(t, m, "Male")
		typeAge(m, "15")
		m.Update(press("tab"))
		pick(t, m, "School")
		m.Update(press("tab"))

		rows := m.rows()
		if len(rows) != 12 || rows[0].label != "Class 1" {
			t.Errorf("expected 12 classes, got %d", len(rows))
		}

		m.Update(press("shift+tab"))
		if m.wizard.Step() != 2 {
			t.Errorf("expected step 2 after going back, got %d", m.wizard.Step())
		}
	})
}
