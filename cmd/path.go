package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/formatter"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
)

// parseLevel accepts the prompt levels by name. Empty means "from the profile".
func parseLevel(s string) (models.EducationLevel, error) {
	switch l := models.EducationLevel(s); l {
	case models.LevelUnset, models.LevelSchool, models.LevelCollege, models.LevelProfessional:
		return l, nil
	default:
		return "", fmt.Errorf("%w: level must be school, college or professional, got %q", shared.ErrInvalidArgument, s)
	}
}

func readCurriculum(path string) (*models.GeneratedCurriculum, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: --input is required", shared.ErrMissingArgument)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum: %w", err)
	}

	var c models.GeneratedCurriculum
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s is not a curriculum file: %w", shared.ErrInvalidArgument, path, err)
	}
	if len(c.Modules) == 0 {
		return nil, shared.ErrEmptyCurriculum
	}
	return &c, nil
}

func writeCurriculum(path string, c *models.GeneratedCurriculum) error {
	if _, err := formatter.WriteJSONExport(c, path); err != nil {
		return fmt.Errorf("failed to save curriculum: %w", err)
	}
	return nil
}

// callerOrAnonymous returns the signed-in identity, or nil when a level override
// lets generation run without a profile.
func (r *Runner) callerOrAnonymous(ctx context.Context, level models.EducationLevel) (context.Context, *models.Identity, error) {
	ctx, id, err := r.caller(ctx)
	if err != nil {
		if level == models.LevelUnset {
			return ctx, nil, err
		}
		r.logger.Debug("generating without a profile", "level", level, "reason", err)
		return ctx, nil, nil
	}
	return ctx, id, nil
}

func (r *Runner) prefetchOpts(cmd *cli.Command) tasks.PrefetchOpts {
	return tasks.PrefetchOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		MaxResults: r.config.YouTube.MaxResults,
		Language:   cmd.String("language"),
	}
}

// PathGenerate creates a learning path for a topic and optionally saves it.
func (r *Runner) PathGenerate(ctx context.Context, cmd *cli.Command) error {
	topic := cmd.StringArg("topic")
	level, err := parseLevel(cmd.String("level"))
	if err != nil {
		return err
	}

	ctx, caller, err := r.callerOrAnonymous(ctx, level)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	result, err := r.engine.Create(ctx, progress, tasks.CreateRequest{
		Caller:       caller,
		Topic:        topic,
		Level:        level,
		Prefetch:     cmd.Bool("prefetch"),
		PrefetchOpts: r.prefetchOpts(cmd),
	})
	close(progress)
	<-done

	if err != nil {
		return err
	}

	if out := cmd.String("output"); out != "" {
		if err := writeCurriculum(out, result.Curriculum); err != nil {
			return err
		}
		r.logger.Info("curriculum saved", "path", out)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Curriculum, true)
	}
	r.writeCurriculumSummary(result.Curriculum, videosOf(result.Videos))
	if out := cmd.String("output"); out != "" {
		r.writePlainln("✓ Saved to %s", out)
	}
	return nil
}

// PathRefine regenerates one module in place, keeping its id and position.
func (r *Runner) PathRefine(ctx context.Context, cmd *cli.Command) error {
	c, err := readCurriculum(cmd.String("input"))
	if err != nil {
		return err
	}
	editor, err := curriculum.NewEditor(*c)
	if err != nil {
		return err
	}

	ctx, caller, err := r.callerOrAnonymous(ctx, c.EducationLevel)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 4)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	if cmd.Bool("all") {
		err = r.engine.Generator().RefineAll(ctx, ownerID(caller), editor, int(cmd.Int("workers")))
	} else {
		moduleID := cmd.String("module")
		if moduleID == "" {
			err = fmt.Errorf("%w: --module or --all is required", shared.ErrMissingArgument)
		} else {
			_, err = r.engine.RefineModule(ctx, progress, caller, editor, moduleID)
		}
	}
	close(progress)
	<-done

	if err != nil {
		return err
	}
	return r.saveEdited(cmd, editor)
}

// PathEdit applies structure edits given as JSON operations.
func (r *Runner) PathEdit(ctx context.Context, cmd *cli.Command) error {
	c, err := readCurriculum(cmd.String("input"))
	if err != nil {
		return err
	}
	editor, err := curriculum.NewEditor(*c)
	if err != nil {
		return err
	}

	var ops []curriculum.EditOp
	if err := json.Unmarshal([]byte(cmd.String("ops")), &ops); err != nil {
		return fmt.Errorf("%w: --ops must be a JSON array of edit operations: %w", shared.ErrInvalidArgument, err)
	}
	for _, op := range ops {
		if err := editor.Apply(op); err != nil {
			return err
		}
		r.logger.Debug("applied edit", "op", op.Op, "id", op.ID)
	}
	return r.saveEdited(cmd, editor)
}

func (r *Runner) saveEdited(cmd *cli.Command, editor *curriculum.Editor) error {
	final, err := editor.Finalize()
	if err != nil {
		return err
	}

	out := cmd.String("output")
	if out == "" {
		out = cmd.String("input")
	}
	if err := writeCurriculum(out, &final); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(final, true)
	}
	r.writeCurriculumSummary(&final, nil)
	r.writePlain("Total: %s hours\n", editor.TotalHours())
	r.writePlainln("✓ Saved to %s", out)
	return nil
}

// PathExplain prints an explanation of one subtopic.
func (r *Runner) PathExplain(ctx context.Context, cmd *cli.Command) error {
	c, err := readCurriculum(cmd.String("input"))
	if err != nil {
		return err
	}
	module, err := findModule(c, cmd.String("module"))
	if err != nil {
		return err
	}
	subtopic := cmd.String("subtopic")
	if subtopic == "" {
		return fmt.Errorf("%w: --subtopic is required", shared.ErrMissingArgument)
	}

	ctx, caller, err := r.callerOrAnonymous(ctx, c.EducationLevel)
	if err != nil {
		return err
	}

	text, err := r.engine.Generator().Explain(ctx, ownerID(caller), subtopic, module.Title, c.Title, c.EducationLevel)
	if err != nil {
		r.logger.Error("explanation failed", "subtopic", subtopic, "error", err)
		return fmt.Errorf("%w: %s", err, curriculum.ExplanationFailed)
	}

	if cmd.Bool("json") {
		return r.writeJSON(curriculum.Explanation{Open: true, Subtopic: subtopic, Text: text}, true)
	}
	r.writePlainHeader(subtopic)
	return r.writePlain("%s\n", text)
}

// PathExport writes the curriculum in one of the export formats plus a manifest.
func (r *Runner) PathExport(ctx context.Context, cmd *cli.Command) error {
	c, err := readCurriculum(cmd.String("input"))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	result, err := r.engine.Export(ctx, progress, c, tasks.ExportOpts{
		Format:       cmd.String("format"),
		OutputDir:    cmd.String("output"),
		Prefetch:     cmd.Bool("prefetch"),
		PrefetchOpts: r.prefetchOpts(cmd),
	})
	close(progress)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	r.writePlain("✓ Exported %d file(s) to %s\n", len(result.Files), result.OutputDirectory)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return r.writePlain("Manifest: %s\n", result.ManifestPath)
}

// Videos lists recommended videos for one module, or every module with --all.
func (r *Runner) Videos(ctx context.Context, cmd *cli.Command) error {
	c, err := readCurriculum(cmd.String("input"))
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		progress := make(chan tasks.ProgressUpdate, 10)
		done := make(chan struct{})
		go r.printProgress(progress, done)
		result, err := r.engine.PrefetchVideos(ctx, progress, c, r.prefetchOpts(cmd))
		close(progress)
		<-done
		if result == nil {
			return err
		}
		if err != nil {
			r.logger.Warn("some searches failed", "error", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(result.Modules, true)
		}
		for _, m := range c.Modules {
			r.writeVideos(m, result.Modules[m.ID])
		}
		return nil
	}

	module, err := findModule(c, cmd.String("module"))
	if err != nil {
		return err
	}
	language := cmd.String("language")
	if language == "" {
		language = "en"
	}
	session, err := curriculum.NewLearningSession(*c, curriculum.SessionOptions{
		Language:  language,
		Videos:    r.videos,
		MaxVideos: r.config.YouTube.MaxResults,
		Logger:    r.logger,
	})
	if err != nil {
		return err
	}

	res := session.ModuleVideos(ctx, *module)
	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	r.writeVideos(*module, res)
	return nil
}

func (r *Runner) writeVideos(m models.CurriculumModule, res curriculum.VideoResult) {
	r.writePlain("%s\n", m.Title)
	if res.Notice != "" {
		r.writePlain("  %s\n", res.Notice)
		return
	}
	for _, v := range res.Videos {
		r.writePlain("  ▶ %s (%s)\n    %s\n", v.Title, v.ChannelTitle, v.URL)
	}
}

func (r *Runner) writeCurriculumSummary(c *models.GeneratedCurriculum, videos map[string][]models.Video) {
	r.writePlainHeader(c.Title)
	if c.Description != "" {
		r.writePlain("%s\n", c.Description)
	}
	r.writePlain("Level: %s\n", c.EducationLevel)

	for i, m := range c.Modules {
		r.writePlainln("%d. %s [%s]", i+1, m.Title, m.ID)
		if m.Description != "" {
			r.writePlain("   %s\n", m.Description)
		}
		if minutes := m.Minutes(); minutes > 0 {
			r.writePlain("   ~%d min\n", minutes)
		}
		for _, s := range m.Subtopics {
			r.writePlain("   • %s\n", s)
		}
		for _, v := range videos[m.ID] {
			r.writePlain("   ▶ %s\n", v.URL)
		}
	}
}

func findModule(c *models.GeneratedCurriculum, id string) (*models.CurriculumModule, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: --module is required", shared.ErrMissingArgument)
	}
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrModuleNotFound, id)
}

func videosOf(r *tasks.PrefetchResult) map[string][]models.Video {
	if r == nil {
		return nil
	}
	out := make(map[string][]models.Video, len(r.Modules))
	for id, res := range r.Modules {
		out[id] = res.Videos
	}
	return out
}

func ownerID(caller *models.Identity) string {
	if caller == nil {
		return ""
	}
	return caller.ID
}
