package models

import "time"

// EducationLevel is the learner's academic stage.
type EducationLevel string

const (
	LevelUnset        EducationLevel = ""
	LevelSchool       EducationLevel = "school"
	LevelCollege      EducationLevel = "college"
	LevelProfessional EducationLevel = "professional"
)

// GenerationLevel maps a profile's education level onto a prompt level.
// Anything that is not school or college is treated as professional.
func (l EducationLevel) GenerationLevel() EducationLevel {
	switch l {
	case LevelSchool, LevelCollege:
		return l
	default:
		return LevelProfessional
	}
}

// UserProfile is one row of the profiles table.
type UserProfile struct {
	ID             string         `json:"id"`
	FullName       string         `json:"fullName"`
	Email          string         `json:"email"`
	Languages      []string       `json:"languages"`
	Gender         string         `json:"gender"`
	Age            string         `json:"age"`
	EducationLevel EducationLevel `json:"educationLevel"`
	Class          string         `json:"class"`
	Field          string         `json:"field"`
	Course         string         `json:"course"`
	Domain         string         `json:"domain"`
	Goals          []string       `json:"goals"`
	LearningStyles []string       `json:"learningStyles"`
	Onboarded      bool           `json:"onboarded"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ProfileUpdate is a partial profile save. A nil field is omitted from the write
// so a later save never clears what an earlier save stored.
type ProfileUpdate struct {
	FullName       *string         `json:"fullName,omitempty"`
	Email          *string         `json:"email,omitempty"`
	Languages      []string        `json:"languages,omitempty"`
	Gender         *string         `json:"gender,omitempty"`
	Age            *string         `json:"age,omitempty"`
	EducationLevel *EducationLevel `json:"educationLevel,omitempty"`
	Class          *string         `json:"class,omitempty"`
	Field          *string         `json:"field,omitempty"`
	Course         *string         `json:"course,omitempty"`
	Domain         *string         `json:"domain,omitempty"`
	Goals          []string        `json:"goals,omitempty"`
	LearningStyles []string        `json:"learningStyles,omitempty"`
	Onboarded      *bool           `json:"onboarded,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Apply merges the non-nil fields of u into p.
func (p *UserProfile) Apply(u ProfileUpdate) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.FullName, u.FullName)
	setString(&p.Email, u.Email)
	setString(&p.Gender, u.Gender)
	setString(&p.Age, u.Age)
	setString(&p.Class, u.Class)
	setString(&p.Field, u.Field)
	setString(&p.Course, u.Course)
	setString(&p.Domain, u.Domain)

	if u.Languages != nil {
		p.Languages = append([]string(nil), u.Languages...)
	}
	if u.Goals != nil {
		p.Goals = append([]string(nil), u.Goals...)
	}
	if u.LearningStyles != nil {
		p.LearningStyles = append([]string(nil), u.LearningStyles...)
	}
	if u.EducationLevel != nil {
		p.EducationLevel = *u.EducationLevel
	}
	if u.Onboarded != nil {
		p.Onboarded = *u.Onboarded
	}
}

// Normalize replaces nil list fields with empty slices.
func (p *UserProfile) Normalize() {
	if p.Languages == nil {
		p.Languages = []string{}
	}
	if p.Goals == nil {
		p.Goals = []string{}
	}
	if p.LearningStyles == nil {
		p.LearningStyles = []string{}
	}
}
