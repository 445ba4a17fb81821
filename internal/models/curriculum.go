package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CurriculumModule is one chapter of a generated curriculum.
type CurriculumModule struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	EstimatedMinutes *int     `json:"estimatedMinutes,omitempty"`
	Subtopics        []string `json:"subtopics"`
}

// UnmarshalJSON accepts ids and estimates written as either numbers or strings.
// Fractional minutes are rounded.
func (m *CurriculumModule) UnmarshalJSON(data []byte) error {
	type plain CurriculumModule
	var raw struct {
		plain
		ID               json.RawMessage `json:"id"`
		EstimatedMinutes json.RawMessage `json:"estimatedMinutes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := looseString(raw.ID)
	if err != nil {
		return fmt.Errorf("module id: %w", err)
	}
	minutes, err := looseNumber(raw.EstimatedMinutes)
	if err != nil {
		return fmt.Errorf("module estimatedMinutes: %w", err)
	}

	*m = CurriculumModule(raw.plain)
	m.ID = id
	m.EstimatedMinutes = nil
	if minutes != nil {
		m.EstimatedMinutes = Ptr(int(math.Round(*minutes)))
	}
	return nil
}

// Minutes returns the estimate or zero when the model omitted it.
func (m CurriculumModule) Minutes() int {
	if m.EstimatedMinutes == nil {
		return 0
	}
	return *m.EstimatedMinutes
}

// GeneratedCurriculum is an LLM-authored course outline.
type GeneratedCurriculum struct {
	Title               string             `json:"title"`
	Description         string             `json:"description,omitempty"`
	TotalEstimatedHours *float64           `json:"totalEstimatedHours,omitempty"`
	EducationLevel      EducationLevel     `json:"educationLevel"`
	Modules             []CurriculumModule `json:"modules"`
}

// UnmarshalJSON accepts totalEstimatedHours written as a number or a string.
func (c *GeneratedCurriculum) UnmarshalJSON(data []byte) error {
	type plain GeneratedCurriculum
	var raw struct {
		plain
		TotalEstimatedHours json.RawMessage `json:"totalEstimatedHours"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	hours, err := looseNumber(raw.TotalEstimatedHours)
	if err != nil {
		return fmt.Errorf("curriculum totalEstimatedHours: %w", err)
	}
	*c = GeneratedCurriculum(raw.plain)
	c.TotalEstimatedHours = hours
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// looseString reads a JSON string or number as text. Absent, null and false are empty.
func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) || bytes.Equal(bytes.TrimSpace(raw), []byte("false")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("want a string or number, got %s", raw)
	}
	return n.String(), nil
}

// looseNumber reads a JSON number or numeric string. Absent, null and
// non-numeric strings are nil.
func looseNumber(raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return &f, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("want a number, got %s", raw)
	}
	return &f, nil
}

// TotalMinutes sums the module estimates.
func (c GeneratedCurriculum) TotalMinutes() int {
	total := 0
	for _, m := range c.Modules {
		total += m.Minutes()
	}
	return total
}

// TotalHours formats the summed module estimates as hours with one decimal.
func (c GeneratedCurriculum) TotalHours() string {
	return fmt.Sprintf("%.1f", time.Duration(c.TotalMinutes()*int(time.Minute)).Hours())
}

// Clone returns a deep copy so editors never alias the caller's slices.
func (c GeneratedCurriculum) Clone() GeneratedCurriculum {
	out := c
	if c.TotalEstimatedHours != nil {
		out.TotalEstimatedHours = Ptr(*c.TotalEstimatedHours)
	}
	out.Modules = make([]CurriculumModule, len(c.Modules))
	for i, m := range c.Modules {
		out.Modules[i] = m.Clone()
	}
	return out
}

// Clone returns a deep copy of the module.
func (m CurriculumModule) Clone() CurriculumModule {
	out := m
	if m.EstimatedMinutes != nil {
		out.EstimatedMinutes = Ptr(*m.EstimatedMinutes)
	}
	out.Subtopics = append([]string(nil), m.Subtopics...)
	return out
}

// Video is a recommended video for a module.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	URL          string `json:"url"`
}

// WatchURL builds the public watch link for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
