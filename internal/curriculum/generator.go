package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

// MinTopicLength is the shortest accepted topic, counted in characters after trimming.
const MinTopicLength = 5

// Sampling parameters shared by every completion call.
const (
	temperature       = 0.7
	topP              = 0.9
	curriculumTokens  = 4096
	refineTokens      = 2048
	explanationTokens = 2048
)

// Actions guarded against duplicate submission.
const (
	ActionGenerate = "generate"
	ActionRefine   = "refine"
	ActionExplain  = "explain"
)

// Generator builds prompts, calls the completion service and parses the replies.
//
// Each (owner, action) pair admits one outstanding request; a second call fails
// fast with [shared.ErrRequestInFlight] without reaching the completion service.
type Generator struct {
	completion services.CompletionService
	logger     *log.Logger

	mu       sync.Mutex
	inflight map[string]*semaphore.Weighted
}

// NewGenerator creates a [Generator].
func NewGenerator(completion services.CompletionService, logger *log.Logger) *Generator {
	return &Generator{
		completion: completion,
		logger:     shared.NewComponentLogger(logger, "generator"),
		inflight:   make(map[string]*semaphore.Weighted),
	}
}

// LevelForProfile picks the prompt level for a learner. No profile means school.
func LevelForProfile(p *models.UserProfile) models.EducationLevel {
	if p == nil {
		return models.LevelSchool
	}
	return p.EducationLevel.GenerationLevel()
}

// ValidateTopic trims topic and checks its length before any network call.
func ValidateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) < MinTopicLength {
		return "", fmt.Errorf("%w: Please enter a topic with at least %d characters.", shared.ErrInvalidInput, MinTopicLength)
	}
	return topic, nil
}

func (g *Generator) acquire(owner, action string) (func(), error) {
	if g.completion == nil {
		return nil, fmt.Errorf("%w: no completion provider configured", shared.ErrNotConfigured)
	}
	key := owner + "\x00" + action

	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.inflight[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.inflight[key] = sem
	}
	if !sem.TryAcquire(1) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRequestInFlight, action)
	}

	// Acquire and release both hold mu, so a released key has no holder and can go.
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		sem.Release(1)
		if g.inflight[key] == sem {
			delete(g.inflight, key)
		}
	}, nil
}

// pending reports how many guard keys are held.
func (g *Generator) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// InFlight reports whether owner has an outstanding request for action.
func (g *Generator) InFlight(owner, action string) bool {
	release, err := g.acquire(owner, action)
	if err != nil {
		return errors.Is(err, shared.ErrRequestInFlight)
	}
	release()
	return false
}

// Generate creates a curriculum for topic at level.
func (g *Generator) Generate(ctx context.Context, owner, topic string, level models.EducationLevel) (*models.GeneratedCurriculum, error) {
	topic, err := ValidateTopic(topic)
	if err != nil {
		return nil, err
	}

	release, err := g.acquire(owner, ActionGenerate)
	if err != nil {
		return nil, err
	}
	defer release()

	g.logger.Info("generating curriculum", "owner", owner, "topic", topic, "level", level, "provider", g.completion.Name())

	content, err := g.completion.Complete(ctx, services.Prompt{
		Content:     CurriculumPrompt(topic, level),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   curriculumTokens,
	})
	if err != nil {
		g.logger.Error("curriculum generation failed", "owner", owner, "err", err)
		return nil, err
	}

	c, err := ParseCurriculum(content, level)
	if err != nil {
		g.logger.Warn("unparseable curriculum response", "owner", owner, "err", err, "bytes", len(content))
		return nil, err
	}

	g.logger.Debug("curriculum generated", "owner", owner, "modules", len(c.Modules))
	return c, nil
}

// Refine asks for a more detailed version of a module. The returned module is
// as parsed; callers decide which id it takes.
func (g *Generator) Refine(ctx context.Context, owner, moduleTitle, topic string, level models.EducationLevel) (*models.CurriculumModule, error) {
	release, err := g.acquire(owner, ActionRefine+":"+moduleTitle)
	if err != nil {
		return nil, err
	}
	defer release()

	content, err := g.completion.Complete(ctx, services.Prompt{
		Content:     RefinePrompt(moduleTitle, topic, level),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   refineTokens,
	})
	if err != nil {
		g.logger.Error("module refinement failed", "owner", owner, "module", moduleTitle, "err", err)
		return nil, err
	}
	return ParseModule(content)
}

// Explain returns a plain-text explanation of subtopic. The reply is not parsed.
func (g *Generator) Explain(ctx context.Context, owner, subtopic, moduleTitle, topic string, level models.EducationLevel) (string, error) {
	release, err := g.acquire(owner, ActionExplain)
	if err != nil {
		return "", err
	}
	defer release()

	content, err := g.completion.Complete(ctx, services.Prompt{
		Content:     ExplainPrompt(subtopic, moduleTitle, topic, level),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   explanationTokens,
	})
	if err != nil {
		g.logger.Error("topic explanation failed", "owner", owner, "subtopic", subtopic, "err", err)
		return "", err
	}

	text := strings.TrimSpace(content)
	if text == "" {
		return "", fmt.Errorf("%w: empty explanation", shared.ErrMissingContent)
	}
	return text, nil
}

// RefineAll refines every module of the editor concurrently, at most limit at a time.
// Modules whose refinement fails keep their previous content; the first error is returned.
func (g *Generator) RefineAll(ctx context.Context, owner string, e *Editor, limit int) error {
	if limit <= 0 {
		limit = 3
	}

	c := e.Curriculum()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for _, m := range c.Modules {
		eg.Go(func() error {
			refined, err := g.Refine(ctx, owner, m.Title, c.Title, c.EducationLevel)
			if err != nil {
				return fmt.Errorf("module %s: %w", m.ID, err)
			}
			return e.Replace(m.ID, *refined)
		})
	}
	return eg.Wait()
}
