package tasks

import (
	"fmt"

	"github.com/desertthunder/modulearn/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	Generate
	PrefetchVideos
	Refine
	Export
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case Generate:
		return "generate"
	case PrefetchVideos:
		return "prefetch_videos"
	case Refine:
		return "refine"
	case Export:
		return "export"
	default:
		return ""
	}
}

func fetchProfileUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    step,
		Total:   total,
		Message: "Loading your profile...",
	}
}

func generateUpdate(step, total int, topic string, level models.EducationLevel) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Generating a %s-level path for %q...", level, topic),
	}
}

func generatedUpdate(step, total int, c *models.GeneratedCurriculum) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Generated: %s (%d modules, %s hours)", c.Title, len(c.Modules), c.TotalHours()),
		Data:    c,
	}
}

func prefetchStartUpdate(step, total, modules int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrefetchVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Finding videos for %d modules...", modules),
	}
}

func prefetchModuleUpdate(step, total int, title string, found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrefetchVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d videos)", step, total, title, found),
	}
}

func prefetchFailedUpdate(step, total int, title, notice string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrefetchVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, title, notice),
	}
}

func refineUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Refine,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Refining module: %s...", title),
	}
}

func exportingUpdate(step, total int, title, format string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Exporting %s as %s...", title, format),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ %s (%d files)", title, filesCount),
	}
}
