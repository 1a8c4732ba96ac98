package llm

import (
	"fmt"
	"strings"
)

const extractionSystemPrompt = `You are a resume parser. Read the resume text and return a single JSON object
with this shape, and nothing else:
{
  "personalInfo": {"firstName": "", "lastName": "", "email": "", "phone": "", "location": "", "linkedin": "", "github": "", "website": ""},
  "summaryPoints": ["one concise point per entry"],
  "education": [{"institution": "", "degree": "", "field": "", "location": "", "startDate": "", "endDate": ""}],
  "experience": [{"company": "", "title": "", "location": "", "startDate": "", "endDate": "", "responsibilities": [""]}],
  "projects": [{"name": "", "link": "", "description": [""]}],
  "technologies": [{"category": "", "items": [""]}]
}
Omit nothing you can find; use empty strings and empty arrays for absent data.
Do not invent facts that are not in the text.`

const schemaMetadataSystemPrompt = `You are a resume layout analyst. Given resume text, return a single JSON
object describing its structure:
{"sectionOrder": ["summary", "experience", ...], "confidence": 0.0}
sectionOrder lists the resume's sections in the order they appear, using the
names: summary, education, experience, projects, technologies. confidence is
your 0-1 estimate that the ordering is right. Return JSON only.`

// BuildExtractionPrompt assembles the primary extraction messages.
func BuildExtractionPrompt(rawText string) []Message {
	return []Message{
		{Role: RoleSystem, Content: extractionSystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("Resume text:\n\n%s", strings.TrimSpace(rawText))},
	}
}

// BuildSchemaMetadataPrompt assembles the structural-hints messages.
func BuildSchemaMetadataPrompt(rawText string) []Message {
	return []Message{
		{Role: RoleSystem, Content: schemaMetadataSystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("Resume text:\n\n%s", strings.TrimSpace(rawText))},
	}
}
