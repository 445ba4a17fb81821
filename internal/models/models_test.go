package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUserProfileApply(t *testing.T) {
	t.Run("nil fields leave values untouched", func(t *testing.T) {
		p := UserProfile{FullName: "Ada", Languages: []string{"English"}}
		p.Apply(ProfileUpdate{Onboarded: Ptr(true)})

		if p.FullName != "Ada" {
			t.Errorf("expected full name preserved, got %q", p.FullName)
		}
		if len(p.Languages) != 1 {
			t.Errorf("expected languages preserved, got %v", p.Languages)
		}
		if !p.Onboarded {
			t.Error("expected onboarded to be set")
		}
	})

	t.Run("lists are copied", func(t *testing.T) {
		goals := []string{"Career"}
		var p UserProfile
		p.Apply(ProfileUpdate{Goals: goals})
		goals[0] = "changed"
		if p.Goals[0] != "Career" {
			t.Errorf("profile aliased caller slice: %v", p.Goals)
		}
	})
}

func TestEducationLevelGenerationLevel(t *testing.T) {
	tc := []struct {
		in   EducationLevel
		want EducationLevel
	}{
		{LevelSchool, LevelSchool},
		{LevelCollege, LevelCollege},
		{LevelUnset, LevelProfessional},
		{EducationLevel("phd"), LevelProfessional},
	}
	for _, tt := range tc {
		if got := tt.in.GenerationLevel(); got != tt.want {
			t.Errorf("%q.GenerationLevel() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGeneratedCurriculumTotalHours(t *testing.T) {
	t.Run("six twenty minute modules", func(t *testing.T) {
		var c GeneratedCurriculum
		for range 6 {
			c.Modules = append(c.Modules, CurriculumModule{EstimatedMinutes: Ptr(20)})
		}
		if got := c.TotalHours(); got != "2.0" {
			t.Errorf("expected 2.0, got %s", got)
		}
	})

	t.Run("missing estimates count as zero", func(t *testing.T) {
		c := GeneratedCurriculum{Modules: []CurriculumModule{{}, {EstimatedMinutes: Ptr(45)}}}
		if got := c.TotalHours(); got != "0.8" {
			t.Errorf("expected 0.8, got %s", got)
		}
	})
}

func TestGeneratedCurriculumClone(t *testing.T) {
	orig := GeneratedCurriculum{Modules: []CurriculumModule{{ID: "module_1", Subtopics: []string{"a"}, EstimatedMinutes: Ptr(10)}}}
	cp := orig.Clone()
	cp.Modules[0].Subtopics[0] = "b"
	*cp.Modules[0].EstimatedMinutes = 99

	if orig.Modules[0].Subtopics[0] != "a" || orig.Modules[0].Minutes() != 10 {
		t.Errorf("clone shares state with original: %+v", orig.Modules[0])
	}
}

func TestIdentityMetadataName(t *testing.T) {
	tc := []struct {
		name string
		meta map[string]any
		want string
	}{
		{name: "full_name first", meta: map[string]any{"full_name": "Ada L", "name": "Ada"}, want: "Ada L"},
		{name: "name fallback", meta: map[string]any{"name": "Grace"}, want: "Grace"},
		{name: "display_name fallback", meta: map[string]any{"full_name": " ", "display_name": "Linus"}, want: "Linus"},
		{name: "non-string ignored", meta: map[string]any{"name": 42}, want: ""},
		{name: "no metadata", meta: nil, want: ""},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Identity{Metadata: tt.meta}).MetadataName(); got != tt.want {
				t.Errorf("MetadataName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCurriculumJSON(t *testing.T) {
	t.Run("absent optional fields stay absent", func(t *testing.T) {
		var c GeneratedCurriculum
		if err := json.Unmarshal([]byte(`{"title":"t","modules":[{"id":"module_1","title":"x","subtopics":[]}]}`), &c); err != nil {
			t.Fatal(err)
		}
		out, err := json.Marshal(c)
		if err != nil {
			t.Fatal(err)
		}
		for _, key := range []string{"description", "estimatedMinutes", "totalEstimatedHours"} {
			if strings.Contains(string(out), key) {
				t.Errorf("expected %s to be omitted, got %s", key, out)
			}
		}
	})

	t.Run("loose ids and estimates", func(t *testing.T) {
		var m CurriculumModule
		if err := json.Unmarshal([]byte(`{"id": 7, "title": "x", "estimatedMinutes": "45"}`), &m); err != nil {
			t.Fatal(err)
		}
		if m.ID != "7" || m.Minutes() != 45 || m.Title != "x" {
			t.Errorf("unexpected module %+v", m)
		}
	})

	t.Run("rejects structured ids", func(t *testing.T) {
		var m CurriculumModule
		if err := json.Unmarshal([]byte(`{"id": [1], "title": "x"}`), &m); err == nil {
			t.Error("expected an error")
		}
	})
}
