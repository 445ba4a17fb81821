// package formatter provides functions to export curricula to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted export formats.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a curriculum title into a file name stem. Blank titles become "curriculum".
func Slug(title string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "curriculum"
	}
	return s
}

func levelLabel(l models.EducationLevel) string {
	if l == models.LevelUnset {
		return "unspecified"
	}
	return string(l)
}

// ExportToCSV converts a curriculum to CSV with one row per subtopic: Position, Module ID, Module, Minutes, Subtopic.
// Modules without subtopics still get a row with an empty subtopic.
func ExportToCSV(c *models.GeneratedCurriculum) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Module ID", "Module", "Minutes", "Subtopic"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, m := range c.Modules {
		minutes := ""
		if m.EstimatedMinutes != nil {
			minutes = strconv.Itoa(*m.EstimatedMinutes)
		}
		subtopics := m.Subtopics
		if len(subtopics) == 0 {
			subtopics = []string{""}
		}
		for _, sub := range subtopics {
			record := []string{strconv.Itoa(i + 1), m.ID, m.Title, minutes, sub}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a curriculum to Markdown. Videos, keyed by module id, are listed under their module when present.
func ExportToMarkdown(c *models.GeneratedCurriculum, videos map[string][]models.Video) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", c.Description)
	}

	fmt.Fprintf(&buf, "**Level**: %s\n", levelLabel(c.EducationLevel))
	fmt.Fprintf(&buf, "**Modules**: %d\n", len(c.Modules))
	fmt.Fprintf(&buf, "**Estimated time**: %s hours\n\n", c.TotalHours())

	for i, m := range c.Modules {
		fmt.Fprintf(&buf, "## %d. %s\n\n", i+1, m.Title)
		if m.EstimatedMinutes != nil {
			fmt.Fprintf(&buf, "_%d min_\n\n", *m.EstimatedMinutes)
		}
		if m.Description != "" {
			fmt.Fprintf(&buf, "%s\n\n", m.Description)
		}
		for _, sub := range m.Subtopics {
			fmt.Fprintf(&buf, "- %s\n", sub)
		}
		if len(m.Subtopics) > 0 {
			buf.WriteString("\n")
		}

		if vids := videos[m.ID]; len(vids) > 0 {
			buf.WriteString("### Recommended videos\n\n")
			for _, v := range vids {
				if v.ChannelTitle != "" {
					fmt.Fprintf(&buf, "- [%s](%s) (%s)\n", v.Title, v.URL, v.ChannelTitle)
				} else {
					fmt.Fprintf(&buf, "- [%s](%s)\n", v.Title, v.URL)
				}
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a curriculum to plain text
func ExportToText(c *models.GeneratedCurriculum) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Curriculum: %s\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", c.Description)
	}
	fmt.Fprintf(&buf, "Level: %s\n", levelLabel(c.EducationLevel))
	fmt.Fprintf(&buf, "Modules: %d (%s hours)\n\n", len(c.Modules), c.TotalHours())

	for i, m := range c.Modules {
		if m.EstimatedMinutes != nil {
			fmt.Fprintf(&buf, "%d. %s [%d min]\n", i+1, m.Title, *m.EstimatedMinutes)
		} else {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, m.Title)
		}
		for _, sub := range m.Subtopics {
			fmt.Fprintf(&buf, "   - %s\n", sub)
		}
	}

	return buf.Bytes(), nil
}

// Metadata is the curriculum summary written next to CSV exports.
type Metadata struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	EducationLevel models.EducationLevel `json:"educationLevel"`
	Modules        int                   `json:"modules"`
	TotalHours     string                `json:"totalHours"`
}

// ToMetadataJSON generates a JSON representation of curriculum metadata (without modules)
func ToMetadataJSON(c *models.GeneratedCurriculum) ([]byte, error) {
	return shared.MarshalJSON(Metadata{
		Title:          c.Title,
		Description:    c.Description,
		EducationLevel: c.EducationLevel,
		Modules:        len(c.Modules),
		TotalHours:     c.TotalHours(),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ModulesFile  string
	MetadataFile string
}

// WriteCSVExport exports a curriculum to CSV format with accompanying metadata JSON file.
//
// Defaults to the title slug as the base filename & creates {base}_modules.csv and {base}_metadata.json
func WriteCSVExport(c *models.GeneratedCurriculum, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = Slug(c.Title)
	}

	csvData, err := ExportToCSV(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	modulesFile := baseFilepath + "_modules.csv"
	if err := os.WriteFile(modulesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ModulesFile:  modulesFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a curriculum to {outputDir}/README.md.
//
// Directory name defaults to the title slug.
func WriteMarkdownExport(c *models.GeneratedCurriculum, outputDir string, videos map[string][]models.Video) (string, error) {
	if outputDir == "" {
		outputDir = Slug(c.Title)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(c, videos)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport exports a curriculum to plain text format.
//
// Defaults to {slug}.txt as the filename.
func WriteTextExport(c *models.GeneratedCurriculum, path string) (string, error) {
	if path == "" {
		path = Slug(c.Title) + ".txt"
	}

	textData, err := ExportToText(c)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the curriculum as indented JSON.
//
// Defaults to {slug}.json as the filename.
func WriteJSONExport(c *models.GeneratedCurriculum, path string) (string, error) {
	if path == "" {
		path = Slug(c.Title) + ".json"
	}

	data, err := shared.MarshalJSON(c, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// Manifest summarizes one export run.
type Manifest struct {
	Title       string            `json:"title"`
	Format      string            `json:"format"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Modules     int               `json:"modules"`
	TotalHours  string            `json:"totalHours"`
	Files       []string          `json:"files"`
	Videos      int               `json:"videos"`
	Notices     map[string]string `json:"notices,omitempty"`
}

// WriteManifest writes the manifest as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
