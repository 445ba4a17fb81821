package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
	"github.com/desertthunder/modulearn/internal/ui"
)

const tuiLogPath = "./tmp/modulearn-tui.log"

// useFileLogger redirects logs to a file so they don't interfere with TUI rendering.
func (r *Runner) useFileLogger() error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)
	return nil
}

// Onboard runs the profile wizard for the signed-in user.
func (r *Runner) Onboard(ctx context.Context, cmd *cli.Command) error {
	ctx, id, err := r.caller(ctx)
	if err != nil {
		return err
	}
	if err := r.useFileLogger(); err != nil {
		return err
	}

	save := func(ctx context.Context, update models.ProfileUpdate) error {
		return r.auth.SaveProfile(ctx, id, update)
	}
	model := ui.NewOnboardModel(ctx, save)

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if err := model.Err(); err != nil {
		return err
	}
	if model.Route() == "" {
		return r.writePlain("Onboarding cancelled; nothing was saved.\n")
	}
	r.writePlain("✓ Profile saved\n")
	return r.writeNextStep(model.Route())
}

// Learn opens the learning view, either over a saved curriculum or for a new topic.
func (r *Runner) Learn(ctx context.Context, cmd *cli.Command) error {
	level, err := parseLevel(cmd.String("level"))
	if err != nil {
		return err
	}

	var model *ui.LearnModel
	if input := cmd.String("input"); input != "" {
		c, err := readCurriculum(input)
		if err != nil {
			return err
		}
		ctx, caller, err := r.callerOrAnonymous(ctx, c.EducationLevel)
		if err != nil {
			return err
		}
		language := cmd.String("language")
		if language == "" {
			language = "en"
		}
		if err := r.useFileLogger(); err != nil {
			return err
		}
		session, err := curriculum.NewLearningSession(*c, curriculum.SessionOptions{
			Owner:     ownerID(caller),
			Language:  language,
			Explainer: r.engine.Generator(),
			Videos:    r.videos,
			MaxVideos: r.config.YouTube.MaxResults,
			Logger:    r.logger,
		})
		if err != nil {
			return err
		}
		model = ui.NewLearnModel(ctx, session)
	} else {
		topic := cmd.StringArg("topic")
		if _, err := curriculum.ValidateTopic(topic); err != nil {
			return err
		}
		ctx, caller, err := r.callerOrAnonymous(ctx, level)
		if err != nil {
			return err
		}
		if err := r.useFileLogger(); err != nil {
			return err
		}
		model = ui.NewCreateModel(ctx, r.engine, tasks.CreateRequest{
			Caller:       caller,
			Topic:        topic,
			Level:        level,
			Prefetch:     true,
			PrefetchOpts: r.prefetchOpts(cmd),
		}, curriculum.SessionOptions{
			Owner:     ownerID(caller),
			Explainer: r.engine.Generator(),
			Videos:    r.videos,
			MaxVideos: r.config.YouTube.MaxResults,
			Logger:    r.logger,
		})
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if err := model.Err(); err != nil {
		return err
	}

	if out := cmd.String("output"); out != "" && model.Session() != nil {
		c := model.Session().Curriculum()
		if err := writeCurriculum(out, &c); err != nil {
			return err
		}
		r.writePlain("✓ Saved to %s\n", out)
	}
	if s := model.Session(); s != nil {
		done, total := s.Progress()
		r.writePlain("Completed %d of %d modules\n", done, total)
	}
	return nil
}
