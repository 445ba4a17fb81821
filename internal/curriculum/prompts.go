package curriculum

import (
	"fmt"

	"github.com/desertthunder/modulearn/internal/models"
)

var levelInstructions = map[models.EducationLevel]string{
	models.LevelSchool: `For school students (grades 8-12):
      - Create 4-6 chapters max
      - Each chapter should have 2-3 subtopics
      - Use simple, relatable examples
      - Focus on conceptual understanding
      - Each subtopic: 15-20 minutes`,
	models.LevelCollege: `For college/university students:
      - Create 6-10 chapters
      - Each chapter should have 3-4 subtopics with depth
      - Include practical applications and real-world examples
      - Focus on both theory and implementation
      - Each subtopic: 20-30 minutes`,
	models.LevelProfessional: `For professionals seeking advanced knowledge:
      - Create 8-12 chapters with complex progression
      - Each chapter should have 4-5 in-depth subtopics
      - Include industry best practices and advanced concepts
      - Focus on practical implementation and mastery
      - Each subtopic: 25-40 minutes`,
}

var explainGuidance = map[models.EducationLevel]string{
	models.LevelSchool:       "Explain in simple, easy-to-understand language suitable for high school students. Use analogies and real-world examples.",
	models.LevelCollege:      "Provide a comprehensive explanation with appropriate technical depth suitable for college students. Include relevant examples and applications.",
	models.LevelProfessional: "Provide an advanced, detailed explanation with technical accuracy suitable for professionals. Include industry applications and best practices.",
}

// CurriculumPrompt asks for a full course outline. Unknown levels use the school instructions.
func CurriculumPrompt(topic string, level models.EducationLevel) string {
	instructions, ok := levelInstructions[level]
	if !ok {
		instructions = levelInstructions[models.LevelSchool]
	}

	return fmt.Sprintf(`You are an expert curriculum designer. Create a comprehensive, well-structured learning path for the following topic:

Topic: "%s"

%s

IMPORTANT: Return ONLY valid JSON with this exact structure, no additional text:
{
  "title": "Complete topic title",
  "description": "Brief overview of what students will learn (2-3 sentences)",
  "totalEstimatedHours": estimated total hours as number,
  "modules": [
    {
      "id": "module_1",
      "title": "Module Title",
      "description": "What students will learn in this module (1-2 sentences)",
      "estimatedMinutes": estimated duration,
      "subtopics": ["Subtopic 1", "Subtopic 2", "Subtopic 3"]
    }
  ]
}

Ensure:
- Module IDs are in format "module_1", "module_2", etc.
- All numerical values are actual numbers (not strings)
- Subtopics are practical, specific, and action-oriented
- Progression is logical and builds on previous modules
- Estimated times are realistic for the education level`, topic, instructions)
}

// RefinePrompt asks for a more detailed version of one module.
func RefinePrompt(moduleTitle, topic string, level models.EducationLevel) string {
	return fmt.Sprintf(`Create a detailed module structure for:

Module: "%s"
Main Topic: "%s"
Education Level: %s

Return ONLY valid JSON with this exact structure (no additional text):
{
  "id": "module_detailed",
  "title": "Complete module title",
  "description": "Detailed description of what will be covered",
  "estimatedMinutes": estimated duration,
  "subtopics": [
    "Detailed subtopic 1",
    "Detailed subtopic 2",
    "Detailed subtopic 3",
    "Detailed subtopic 4",
    "Detailed subtopic 5"
  ]
}`, moduleTitle, topic, level)
}

// ExplainPrompt asks for a plain-text explanation of one subtopic.
// Unknown levels use the college guidance.
func ExplainPrompt(subtopic, moduleTitle, topic string, level models.EducationLevel) string {
	guidance, ok := explainGuidance[level]
	if !ok {
		guidance = explainGuidance[models.LevelCollege]
	}

	return fmt.Sprintf(`You are an educational expert. Provide a detailed, easy-to-understand explanation for the following:

Main Topic: "%s"
Module: "%s"
Specific Topic: "%s"
Education Level: %s

%s

Provide ONLY the explanation text, no JSON or markdown formatting. Make it comprehensive, clear, and engaging.`, topic, moduleTitle, subtopic, level, guidance)
}
