package curriculum

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// fencedJSON matches the first ```json fenced block. It is non-greedy so a second
// fence later in the text is ignored.
var fencedJSON = regexp.MustCompile("(?s)```json\\n?(.*?)\\n?```")

// decode parses content strictly, then falls back to the first ```json fenced block.
func decode(content string, v any) error {
	if strings.TrimSpace(content) == "" {
		return shared.ErrMissingContent
	}

	strictErr := json.Unmarshal([]byte(content), v)
	if strictErr == nil {
		return nil
	}

	m := fencedJSON.FindStringSubmatch(content)
	if m == nil {
		return fmt.Errorf("%w: %w", shared.ErrMalformedResponse, strictErr)
	}
	if err := json.Unmarshal([]byte(m[1]), v); err != nil {
		return fmt.Errorf("%w: fenced block: %w", shared.ErrMalformedResponse, err)
	}
	return nil
}

// ParseCurriculum turns completion text into a curriculum.
//
// Modules without an id get a positional "module_<n>" id, and the education
// level is overwritten with level. No other fields are defaulted.
func ParseCurriculum(content string, level models.EducationLevel) (*models.GeneratedCurriculum, error) {
	var c models.GeneratedCurriculum
	if err := decode(content, &c); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum JSON response: %w", err)
	}
	if c.Modules == nil {
		return nil, fmt.Errorf("failed to parse curriculum JSON response: %w: no modules list", shared.ErrMalformedResponse)
	}

	c.EducationLevel = level
	for i := range c.Modules {
		if c.Modules[i].ID == "" {
			c.Modules[i].ID = fmt.Sprintf("module_%d", i+1)
		}
	}
	return &c, nil
}

// ParseModule turns completion text into a single module, unchanged.
func ParseModule(content string) (*models.CurriculumModule, error) {
	var m models.CurriculumModule
	if err := decode(content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse module JSON: %w", err)
	}
	return &m, nil
}
