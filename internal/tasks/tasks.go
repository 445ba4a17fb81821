// package tasks implements the learning-path operations that span several collaborators.
//
// The core abstraction is PathEngine, which sequences profile lookup, curriculum generation and video prefetch.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

// MsgProfileUnavailable is shown when a path is requested before the profile can be read.
const MsgProfileUnavailable = "Unable to load your profile. Please refresh and try again."

var ErrProfileUnavailable = fmt.Errorf("%w: %s", shared.ErrProfileNotFound, MsgProfileUnavailable)

// ProfileSource reads the caller's profile.
type ProfileSource interface {
	GetProfile(ctx context.Context, caller *models.Identity) (*models.UserProfile, error)
}

// CreateRequest asks for a new learning path.
type CreateRequest struct {
	Caller *models.Identity
	Topic  string
	// Level overrides the profile's education level. When set, a missing profile is not an error.
	Level models.EducationLevel
	// Prefetch fetches recommended videos for every module once the curriculum exists.
	Prefetch     bool
	PrefetchOpts PrefetchOpts
}

// CreateResult is a generated path with whatever was prefetched for it.
type CreateResult struct {
	Profile    *models.UserProfile
	Curriculum *models.GeneratedCurriculum
	Language   string
	Videos     *PrefetchResult
}

// Session opens a learning session over the result, seeded with the prefetched videos.
func (r *CreateResult) Session(opts curriculum.SessionOptions) (*curriculum.LearningSession, error) {
	if opts.Language == "" {
		opts.Language = r.Language
	}
	s, err := curriculum.NewLearningSession(*r.Curriculum, opts)
	if err != nil {
		return nil, err
	}
	if r.Videos != nil {
		for id, res := range r.Videos.Modules {
			if res.Notice == "" {
				s.Prime(id, res.Videos)
			}
		}
	}
	return s, nil
}

// PathEngine sequences the multi-step learning-path operations.
// Contains dependencies on the profile store, the generator and video search.
type PathEngine struct {
	profiles  ProfileSource
	generator *curriculum.Generator
	videos    services.VideoSearcher
	logger    *log.Logger
}

// NewPathEngine creates a new PathEngine. videos may be nil when no search key is configured.
func NewPathEngine(profiles ProfileSource, generator *curriculum.Generator, videos services.VideoSearcher, logger *log.Logger) *PathEngine {
	return &PathEngine{
		profiles:  profiles,
		generator: generator,
		videos:    videos,
		logger:    shared.NewComponentLogger(logger, "tasks"),
	}
}

// Generator returns the engine's curriculum generator.
func (e *PathEngine) Generator() *curriculum.Generator { return e.generator }

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PathEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Create validates the topic, loads the caller's profile, generates a curriculum and optionally prefetches videos.
//
// The topic is checked before any network call. Without a readable profile the request fails with
// [MsgProfileUnavailable] unless the request carries its own level.
func (e *PathEngine) Create(ctx context.Context, progress chan<- ProgressUpdate, req CreateRequest) (*CreateResult, error) {
	topic, err := curriculum.ValidateTopic(req.Topic)
	if err != nil {
		return nil, err
	}

	total := 2
	if req.Prefetch {
		total = 3
	}

	e.sendProgress(progress, fetchProfileUpdate(1, total))
	profile, err := e.loadProfile(ctx, req.Caller)
	if err != nil {
		if req.Level == models.LevelUnset {
			e.logger.Error("profile unavailable for path creation", "err", err)
			return nil, ErrProfileUnavailable
		}
		e.logger.Warn("continuing without profile", "level", req.Level, "err", err)
	}

	level := req.Level
	if level == models.LevelUnset {
		level = curriculum.LevelForProfile(profile)
	}
	language := "en"
	if profile != nil {
		language = shared.PreferredLanguage(profile.Languages)
	}

	e.sendProgress(progress, generateUpdate(2, total, topic, level))
	c, err := e.generator.Generate(ctx, ownerOf(req.Caller), topic, level)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, generatedUpdate(2, total, c))

	result := &CreateResult{Profile: profile, Curriculum: c, Language: language}
	if !req.Prefetch {
		return result, nil
	}

	opts := req.PrefetchOpts
	if opts.Language == "" {
		opts.Language = language
	}
	e.sendProgress(progress, prefetchStartUpdate(3, total, len(c.Modules)))
	videos, err := e.PrefetchVideos(ctx, progress, c, opts)
	if err != nil {
		e.logger.Warn("video prefetch incomplete", "err", err)
	}
	result.Videos = videos
	return result, nil
}

func (e *PathEngine) loadProfile(ctx context.Context, caller *models.Identity) (*models.UserProfile, error) {
	if e.profiles == nil {
		return nil, shared.ErrNotConfigured
	}
	if caller == nil {
		return nil, shared.ErrNotAuthenticated
	}
	p, err := e.profiles.GetProfile(ctx, caller)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.ErrProfileNotFound
	}
	return p, nil
}

// RefineModule asks for a more detailed version of a module and swaps it into the editor,
// keeping the module's id and position.
func (e *PathEngine) RefineModule(ctx context.Context, progress chan<- ProgressUpdate, caller *models.Identity, ed *curriculum.Editor, moduleID string) (*models.CurriculumModule, error) {
	c := ed.Curriculum()
	var target *models.CurriculumModule
	for i := range c.Modules {
		if c.Modules[i].ID == moduleID {
			target = &c.Modules[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrModuleNotFound, moduleID)
	}

	e.sendProgress(progress, refineUpdate(1, 1, target.Title))
	refined, err := e.generator.Refine(ctx, ownerOf(caller), target.Title, c.Title, c.EducationLevel)
	if err != nil {
		return nil, err
	}
	if err := ed.Replace(moduleID, *refined); err != nil {
		return nil, err
	}

	for _, m := range ed.Curriculum().Modules {
		if m.ID == moduleID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrModuleNotFound, moduleID)
}

func ownerOf(caller *models.Identity) string {
	if caller == nil {
		return ""
	}
	return caller.ID
}
