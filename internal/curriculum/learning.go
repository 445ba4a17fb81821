package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

// User-facing notices for degraded learning view features.
const (
	NoticeVideosNotConfigured = "YouTube API key not configured."
	NoticeVideosFailed        = "Unable to load recommended videos right now."
	ExplanationFailed         = "Failed to load explanation. Please try again."
)

// Explainer produces topic explanations. [Generator] implements it.
type Explainer interface {
	Explain(ctx context.Context, owner, subtopic, moduleTitle, topic string, level models.EducationLevel) (string, error)
}

// SessionOptions configures a [LearningSession].
type SessionOptions struct {
	Owner     string
	Language  string
	Explainer Explainer
	// Videos may be nil when no video search key is configured.
	Videos    services.VideoSearcher
	MaxVideos int
	Logger    *log.Logger
}

// VideoResult is what the learning view shows for a module's videos.
type VideoResult struct {
	Videos []models.Video `json:"videos"`
	Notice string         `json:"notice,omitempty"`
}

// Explanation is the open topic panel. Open is false after toggling a topic off.
type Explanation struct {
	Open     bool   `json:"open"`
	Subtopic string `json:"subtopic,omitempty"`
	Text     string `json:"text,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
}

// LearningSession is the paginated view over a frozen curriculum.
//
// Module videos are cached per module for the life of the session; failures are
// not cached so revisiting a module retries. Explanation replies that arrive after
// the learner moved on are discarded.
type LearningSession struct {
	c         models.GeneratedCurriculum
	owner     string
	language  string
	explainer Explainer
	videos    services.VideoSearcher
	maxVideos int
	logger    *log.Logger

	mu          sync.Mutex
	active      int
	completed   map[string]bool
	explanation Explanation
	seq         uint64
	cache       map[string][]models.Video
}

// NewLearningSession freezes c for learning. A curriculum without modules is rejected.
func NewLearningSession(c models.GeneratedCurriculum, opts SessionOptions) (*LearningSession, error) {
	if len(c.Modules) == 0 {
		return nil, shared.ErrEmptyCurriculum
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.MaxVideos <= 0 {
		opts.MaxVideos = 2
	}

	return &LearningSession{
		c:         c.Clone(),
		owner:     opts.Owner,
		language:  opts.Language,
		explainer: opts.Explainer,
		videos:    opts.Videos,
		maxVideos: opts.MaxVideos,
		logger:    shared.NewComponentLogger(opts.Logger, "learning"),
		completed: make(map[string]bool),
		cache:     make(map[string][]models.Video),
	}, nil
}

// Curriculum returns the frozen curriculum.
func (s *LearningSession) Curriculum() models.GeneratedCurriculum {
	return s.c.Clone()
}

// Language is the video relevance language code.
func (s *LearningSession) Language() string { return s.language }

// Active returns the active module index and the module itself.
func (s *LearningSession) Active() (int, models.CurriculumModule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.c.Modules[s.active].Clone()
}

// Select makes module i active and closes any open explanation.
func (s *LearningSession) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.c.Modules) {
		return fmt.Errorf("%w: module index %d", shared.ErrInvalidArgument, i)
	}
	if i != s.active {
		s.active = i
		s.closeExplanation()
	}
	return nil
}

// Next advances to the following module. It reports false on the last module.
func (s *LearningSession) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active >= len(s.c.Modules)-1 {
		return false
	}
	s.active++
	s.closeExplanation()
	return true
}

// Prev moves to the preceding module. It reports false on the first module.
func (s *LearningSession) Prev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == 0 {
		return false
	}
	s.active--
	s.closeExplanation()
	return true
}

// closeExplanation must be called with mu held.
func (s *LearningSession) closeExplanation() {
	s.explanation = Explanation{}
	s.seq++
}

// ToggleComplete flips the active module's completion mark and returns the new value.
func (s *LearningSession) ToggleComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.c.Modules[s.active].ID
	s.completed[id] = !s.completed[id]
	return s.completed[id]
}

// IsComplete reports whether module id is marked completed.
func (s *LearningSession) IsComplete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[id]
}

// Progress returns the completed and total module counts.
func (s *LearningSession) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.c.Modules {
		if s.completed[m.ID] {
			done++
		}
	}
	return done, len(s.c.Modules)
}

// Explanation returns the current explanation panel.
func (s *LearningSession) Explanation() Explanation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explanation
}

// ToggleExplanation opens subtopic's explanation, or closes it when it is already open.
//
// A failed request is shown as [ExplanationFailed] rather than returned, except
// [shared.ErrRequestInFlight], which closes the panel again.
func (s *LearningSession) ToggleExplanation(ctx context.Context, subtopic string) (Explanation, error) {
	s.mu.Lock()
	if s.explanation.Open && s.explanation.Subtopic == subtopic {
		s.closeExplanation()
		s.mu.Unlock()
		return Explanation{}, nil
	}

	s.seq++
	seq := s.seq
	s.explanation = Explanation{Open: true, Subtopic: subtopic}
	module := s.c.Modules[s.active]
	s.mu.Unlock()

	moduleTitle := module.Title
	if moduleTitle == "" {
		moduleTitle = "Module"
	}
	topic := s.c.Title
	if topic == "" {
		topic = "Topic"
	}
	level := s.c.EducationLevel
	if level == models.LevelUnset {
		level = models.LevelCollege
	}

	if s.explainer == nil {
		return s.settle(seq, "", shared.ErrNotConfigured)
	}
	text, err := s.explainer.Explain(ctx, s.owner, subtopic, moduleTitle, topic, level)
	if errors.Is(err, shared.ErrRequestInFlight) {
		s.mu.Lock()
		if seq == s.seq {
			s.closeExplanation()
		}
		s.mu.Unlock()
		return Explanation{}, err
	}
	return s.settle(seq, text, err)
}

// settle applies an explanation reply if the learner has not moved on since it was requested.
func (s *LearningSession) settle(seq uint64, text string, err error) (Explanation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.logger.Debug("discarding stale explanation", "seq", seq, "current", s.seq)
		return s.explanation, nil
	}

	if err != nil {
		s.logger.Error("failed to get topic explanation", "subtopic", s.explanation.Subtopic, "err", err)
		s.explanation.Text = ExplanationFailed
		s.explanation.Failed = true
		return s.explanation, nil
	}
	s.explanation.Text = text
	return s.explanation, nil
}

// VideoQuery builds the search text: curriculum title, module title and the first two subtopics.
func VideoQuery(curriculumTitle string, m models.CurriculumModule) string {
	parts := []string{curriculumTitle, m.Title}
	parts = append(parts, m.Subtopics[:min(2, len(m.Subtopics))]...)

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Videos returns recommended videos for the active module, fetching them once per module.
// It never fails: problems are reported through [VideoResult.Notice].
func (s *LearningSession) Videos(ctx context.Context) VideoResult {
	_, m := s.Active()
	return s.ModuleVideos(ctx, m)
}

// ModuleVideos is [LearningSession.Videos] for any module of the curriculum.
func (s *LearningSession) ModuleVideos(ctx context.Context, m models.CurriculumModule) VideoResult {
	s.mu.Lock()
	cached, ok := s.cache[m.ID]
	s.mu.Unlock()
	if ok {
		return VideoResult{Videos: cached}
	}

	res, err := FetchVideos(ctx, s.videos, services.VideoQuery{
		Query:      VideoQuery(s.c.Title, m),
		MaxResults: s.maxVideos,
		Language:   s.language,
	})
	if err != nil {
		s.logger.Error("video search failed", "module", m.ID, "err", err)
		return res
	}

	s.Prime(m.ID, res.Videos)
	return res
}

// Prime seeds the video cache for a module, e.g. from a prefetch.
func (s *LearningSession) Prime(moduleID string, videos []models.Video) {
	if videos == nil {
		videos = []models.Video{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[moduleID] = videos
}

// FetchVideos runs one search and folds any failure into [VideoResult.Notice].
// The error is returned for logging only; a non-nil error means the result must not be cached.
func FetchVideos(ctx context.Context, searcher services.VideoSearcher, q services.VideoQuery) (VideoResult, error) {
	if searcher == nil {
		return VideoResult{Videos: []models.Video{}, Notice: NoticeVideosNotConfigured}, shared.ErrNotConfigured
	}

	videos, err := searcher.Search(ctx, q)
	if err != nil {
		if errors.Is(err, shared.ErrNotConfigured) {
			return VideoResult{Videos: []models.Video{}, Notice: NoticeVideosNotConfigured}, err
		}
		return VideoResult{Videos: []models.Video{}, Notice: NoticeVideosFailed}, err
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return VideoResult{Videos: videos}, nil
}
