// package repositories provides persistence layer implementations for learner profiles and local credentials.
//
// Three [models.ProfileStore] implementations share the same column mapping: SQLite via database/sql,
// PostgreSQL via pgx, and a hosted PostgREST table over HTTP.
package repositories

import (
	"encoding/json"
	"time"

	"github.com/desertthunder/modulearn/internal/models"
)

// column is one profile column to be written.
type column struct {
	name  string
	value any
}

// profileColumns lists the columns set by u, in table order, followed by updated_at.
// List values are left as []string; SQL stores encode them with [encodeList].
func profileColumns(u models.ProfileUpdate, now time.Time) []column {
	var cols []column
	str := func(name string, v *string) {
		if v != nil {
			cols = append(cols, column{name, *v})
		}
	}
	list := func(name string, v []string) {
		if v != nil {
			cols = append(cols, column{name, v})
		}
	}

	str("full_name", u.FullName)
	str("email", u.Email)
	list("languages", u.Languages)
	str("gender", u.Gender)
	str("age", u.Age)
	if u.EducationLevel != nil {
		cols = append(cols, column{"education_level", string(*u.EducationLevel)})
	}
	str("class", u.Class)
	str("field", u.Field)
	str("course", u.Course)
	str("domain", u.Domain)
	list("goals", u.Goals)
	list("learning_styles", u.LearningStyles)
	if u.Onboarded != nil {
		cols = append(cols, column{"onboarded", *u.Onboarded})
	}

	return append(cols, column{"updated_at", now.UTC()})
}

// sqlValue converts list columns to JSON text for the SQL stores.
func (c column) sqlValue() any {
	if v, ok := c.value.([]string); ok {
		return encodeList(v)
	}
	return c.value
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// decodeList tolerates NULL and malformed cells by returning an empty list.
func decodeList(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

const selectProfile = `
	SELECT id, COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(languages, ''),
		COALESCE(gender, ''), COALESCE(age, ''), COALESCE(education_level, ''),
		COALESCE("class", ''), COALESCE(field, ''), COALESCE(course, ''), COALESCE("domain", ''),
		COALESCE(goals, ''), COALESCE(learning_styles, ''), onboarded, updated_at
	FROM profiles`

// profileRow holds the scanned text columns before list decoding.
type profileRow struct {
	p              models.UserProfile
	level          string
	languages      string
	goals          string
	learningStyles string
}

func (r *profileRow) dest() []any {
	return []any{
		&r.p.ID, &r.p.FullName, &r.p.Email, &r.languages,
		&r.p.Gender, &r.p.Age, &r.level,
		&r.p.Class, &r.p.Field, &r.p.Course, &r.p.Domain,
		&r.goals, &r.learningStyles, &r.p.Onboarded,
	}
}

func (r *profileRow) profile(updatedAt *time.Time) *models.UserProfile {
	p := r.p
	p.EducationLevel = models.EducationLevel(r.level)
	p.Languages = decodeList(r.languages)
	p.Goals = decodeList(r.goals)
	p.LearningStyles = decodeList(r.learningStyles)
	if updatedAt != nil {
		p.UpdatedAt = *updatedAt
	}
	return &p
}
