package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/desertthunder/modulearn/internal/formatter"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// ExportOpts contains configuration for curriculum exports.
type ExportOpts struct {
	Format    string // Export format: json, csv, markdown, txt
	OutputDir string // Base output directory (default: {slug}_export_{epoch})
	// Videos adds recommended videos to Markdown exports, searching them first when nil.
	Videos   *PrefetchResult
	Prefetch bool
	PrefetchOpts
}

// ExportResult lists the files written by [PathEngine.Export].
type ExportResult struct {
	OutputDirectory string
	Files           []string
	ManifestPath    string
}

// Export writes the curriculum in the requested format plus a manifest.
func (e *PathEngine) Export(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	c *models.GeneratedCurriculum,
	opts ExportOpts,
) (*ExportResult, error) {
	if c == nil || len(c.Modules) == 0 {
		return nil, shared.ErrEmptyCurriculum
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !slices.Contains(formatter.Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q (want one of %v)", shared.ErrInvalidArgument, opts.Format, formatter.Formats)
	}

	slug := formatter.Slug(c.Title)
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s_export_%d", slug, time.Now().Unix())
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	videos := opts.Videos
	if videos == nil && opts.Prefetch && opts.Format == formatter.FormatMarkdown {
		var err error
		if videos, err = e.PrefetchVideos(ctx, prog, c, opts.PrefetchOpts); err != nil {
			e.logger.Warn("exporting with partial videos", "err", err)
		}
	}

	e.sendProgress(prog, exportingUpdate(1, 1, c.Title, opts.Format))

	result := &ExportResult{OutputDirectory: opts.OutputDir}
	switch opts.Format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(c, filepath.Join(opts.OutputDir, slug))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		result.Files = []string{res.ModulesFile, res.MetadataFile}
	case formatter.FormatMarkdown:
		path, err := formatter.WriteMarkdownExport(c, opts.OutputDir, videoLists(videos))
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		result.Files = []string{path}
	case formatter.FormatText:
		path, err := formatter.WriteTextExport(c, filepath.Join(opts.OutputDir, slug+".txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		result.Files = []string{path}
	default:
		path, err := formatter.WriteJSONExport(c, filepath.Join(opts.OutputDir, slug+".json"))
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		result.Files = []string{path}
	}

	manifest := &formatter.Manifest{
		Title:       c.Title,
		Format:      opts.Format,
		GeneratedAt: time.Now().UTC(),
		Modules:     len(c.Modules),
		TotalHours:  c.TotalHours(),
		Files:       result.Files,
	}
	if videos != nil {
		for id, res := range videos.Modules {
			manifest.Videos += len(res.Videos)
			if res.Notice != "" {
				if manifest.Notices == nil {
					manifest.Notices = map[string]string{}
				}
				manifest.Notices[id] = res.Notice
			}
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.sendProgress(prog, exportCompletedUpdate(1, 1, c.Title, len(result.Files)))
	return result, nil
}

func videoLists(r *PrefetchResult) map[string][]models.Video {
	if r == nil {
		return nil
	}
	out := make(map[string][]models.Video, len(r.Modules))
	for id, res := range r.Modules {
		out[id] = res.Videos
	}
	return out
}
