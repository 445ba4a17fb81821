package onboarding

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// TotalSteps is the number of wizard pages.
const TotalSteps = 4

// Choices offered by the wizard.
var (
	Languages          = []string{"English", "Spanish", "Hindi", "French", "German", "Chinese", "Japanese", "Arabic"}
	Genders            = []string{"male", "female", "other", "prefer_not_to_say"}
	CollegeFields      = []string{"Engineering", "Medical", "Commerce", "Arts", "Management", "Law", "Science"}
	EngineeringCourses = []string{"B.Tech", "M.Tech", "PhD", "B.E."}
	EngineeringDomains = []string{"CSE", "ECE", "Mechanical", "Civil", "Electrical", "IT", "AI & DS"}
	MedicalCourses     = []string{"MBBS", "BDS", "BAMS", "BHMS", "BPT"}
	CommerceCourses    = []string{"B.Com", "M.Com", "CA", "CS", "BBA"}
	GeneralCourses     = []string{"BA", "MA", "B.Sc", "M.Sc"}
	Goals              = []string{"Exam Preparation", "Skill Building", "General Knowledge", "Career Change"}
	LearningStyles     = []string{"Visual (Videos/Graphs)", "Textual (Detailed Reading)", "Interactive (Quizzes)", "Practical (Exercises)"}
)

// MaxClass is the highest school class offered.
const MaxClass = 12

// CoursesFor lists the courses offered for a college field.
func CoursesFor(field string) []string {
	switch field {
	case "Engineering":
		return EngineeringCourses
	case "Medical":
		return MedicalCourses
	case "Commerce":
		return CommerceCourses
	case "":
		return nil
	default:
		return GeneralCourses
	}
}

// Answers is everything the wizard collects.
type Answers struct {
	Languages      []string              `json:"languages" validate:"dive,oneof=English Spanish Hindi French German Chinese Japanese Arabic"`
	Gender         string                `json:"gender" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	Age            string                `json:"age" validate:"omitempty,numeric"`
	EducationLevel models.EducationLevel `json:"educationLevel" validate:"omitempty,oneof=school college"`
	Class          string                `json:"class" validate:"omitempty,numeric"`
	Field          string                `json:"field"`
	Course         string                `json:"course"`
	Domain         string                `json:"domain"`
	Goals          []string              `json:"goals" validate:"dive,required"`
	LearningStyles []string              `json:"learningStyles" validate:"dive,required"`
}

// StepValid reports whether step may be left with these answers.
func (a Answers) StepValid(step int) bool {
	switch step {
	case 1:
		return len(a.Languages) > 0 && a.Gender != "" && a.Age != ""
	case 2:
		return a.EducationLevel != models.LevelUnset
	case 3:
		if a.EducationLevel == models.LevelSchool {
			return a.Class != ""
		}
		return a.Field != "" && a.Course != ""
	case 4:
		return len(a.Goals) > 0 && len(a.LearningStyles) > 0
	default:
		return true
	}
}

// Update is the profile write for a finished wizard. Full name is left out so
// the name saved at signup or OAuth login survives.
func (a Answers) Update() models.ProfileUpdate {
	level := a.EducationLevel
	return models.ProfileUpdate{
		Languages:      nonNil(a.Languages),
		Gender:         models.Ptr(a.Gender),
		Age:            models.Ptr(a.Age),
		EducationLevel: &level,
		Class:          models.Ptr(a.Class),
		Field:          models.Ptr(a.Field),
		Course:         models.Ptr(a.Course),
		Domain:         models.Ptr(a.Domain),
		Goals:          nonNil(a.Goals),
		LearningStyles: nonNil(a.LearningStyles),
		Onboarded:      models.Ptr(true),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

var validate = validator.New()

// Validate checks a complete submission: field formats, then every step in order.
func Validate(a Answers) error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	for step := 1; step <= TotalSteps; step++ {
		if !a.StepValid(step) {
			return fmt.Errorf("%w: step %d of %d is incomplete", shared.ErrInvalidInput, step, TotalSteps)
		}
	}
	return nil
}

// Saver persists the finished profile.
type Saver func(ctx context.Context, update models.ProfileUpdate) error

// Wizard is the four-step onboarding state machine. It is safe for concurrent use.
type Wizard struct {
	mu      sync.Mutex
	step    int
	answers Answers
	saving  bool
}

// New starts a wizard on step 1.
func New() *Wizard {
	return &Wizard{step: 1}
}

// Step returns the current page, 1 through [TotalSteps].
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Answers returns a copy of the collected answers.
func (w *Wizard) Answers() Answers {
	w.mu.Lock()
	defer w.mu.Unlock()
	a := w.answers
	a.Languages = slices.Clone(a.Languages)
	a.Goals = slices.Clone(a.Goals)
	a.LearningStyles = slices.Clone(a.LearningStyles)
	return a
}

// Valid reports whether the current step is complete.
func (w *Wizard) Valid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.answers.StepValid(w.step)
}

// Saving reports whether Finish is in progress.
func (w *Wizard) Saving() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saving
}

// Next moves forward when the current step is complete.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.saving {
		return shared.ErrRequestInFlight
	}
	if !w.answers.StepValid(w.step) {
		return fmt.Errorf("%w: step %d is incomplete", shared.ErrInvalidInput, w.step)
	}
	w.step = min(w.step+1, TotalSteps)
	return nil
}

// Back moves to the previous step; it never leaves step 1.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.saving {
		w.step = max(w.step-1, 1)
	}
}

func toggle(list []string, v string) []string {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}

func choose(options []string, v, what string) error {
	if !slices.Contains(options, v) {
		return fmt.Errorf("%w: unknown %s %q", shared.ErrInvalidArgument, what, v)
	}
	return nil
}

// ToggleLanguage adds or removes a language, keeping selection order.
func (w *Wizard) ToggleLanguage(lang string) error {
	if err := choose(Languages, lang, "language"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.Languages = toggle(w.answers.Languages, lang)
	return nil
}

// ToggleGoal adds or removes a learning goal.
func (w *Wizard) ToggleGoal(goal string) error {
	if err := choose(Goals, goal, "goal"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.Goals = toggle(w.answers.Goals, goal)
	return nil
}

// ToggleLearningStyle adds or removes a learning style.
func (w *Wizard) ToggleLearningStyle(style string) error {
	if err := choose(LearningStyles, style, "learning style"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.LearningStyles = toggle(w.answers.LearningStyles, style)
	return nil
}

func (w *Wizard) SetGender(g string) error {
	if err := choose(Genders, g, "gender"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.Gender = g
	return nil
}

func (w *Wizard) SetAge(age string) error {
	n, err := strconv.Atoi(age)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: age must be a positive number", shared.ErrInvalidArgument)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.Age = strconv.Itoa(n)
	return nil
}

// SetEducationLevel picks school or college.
func (w *Wizard) SetEducationLevel(level models.EducationLevel) error {
	if level != models.LevelSchool && level != models.LevelCollege {
		return fmt.Errorf("%w: education level must be school or college", shared.ErrInvalidArgument)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.EducationLevel = level
	return nil
}

// SetClass picks a school class from 1 to [MaxClass].
func (w *Wizard) SetClass(class int) error {
	if class < 1 || class > MaxClass {
		return fmt.Errorf("%w: class must be between 1 and %d", shared.ErrInvalidArgument, MaxClass)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.Class = strconv.Itoa(class)
	return nil
}

// SetField picks a college field and clears the course and domain chosen for the previous one.
func (w *Wizard) SetField(field string) error {
	if err := choose(CollegeFields, field, "field"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answers.Field = field
	w.answers.Course = ""
	w.answers.Domain = ""
	return nil
}

// SetCourse picks a course offered for the chosen field.
func (w *Wizard) SetCourse(course string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.answers.Field == "" {
		return fmt.Errorf("%w: choose a field first", shared.ErrInvalidArgument)
	}
	if err := choose(CoursesFor(w.answers.Field), course, "course"); err != nil {
		return err
	}
	w.answers.Course = course
	return nil
}

// SetDomain picks an engineering specialization. It is only offered once an
// engineering course is chosen.
func (w *Wizard) SetDomain(domain string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.answers.Field != "Engineering" || w.answers.Course == "" {
		return fmt.Errorf("%w: domain applies to engineering courses only", shared.ErrInvalidArgument)
	}
	if err := choose(EngineeringDomains, domain, "domain"); err != nil {
		return err
	}
	w.answers.Domain = domain
	return nil
}

// Finish saves the profile with onboarded set. It is only allowed from a valid
// last step, and a second call while saving fails with [shared.ErrRequestInFlight].
// On failure the wizard stays on the last step so the user can retry.
func (w *Wizard) Finish(ctx context.Context, save Saver) (models.Route, error) {
	w.mu.Lock()
	if w.saving {
		w.mu.Unlock()
		return "", shared.ErrRequestInFlight
	}
	if w.step != TotalSteps {
		w.mu.Unlock()
		return "", fmt.Errorf("%w: finish is only available on step %d", shared.ErrInvalidInput, TotalSteps)
	}
	if !w.answers.StepValid(w.step) {
		w.mu.Unlock()
		return "", fmt.Errorf("%w: step %d is incomplete", shared.ErrInvalidInput, w.step)
	}
	w.saving = true
	update := w.answers.Update()
	w.mu.Unlock()

	err := save(ctx, update)

	w.mu.Lock()
	w.saving = false
	w.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("failed to save profile: %w", err)
	}
	return models.RouteDashboard, nil
}
