package model

import (
	"fmt"
	"strings"
)

// Document is the canonical structured resume payload.
type Document struct {
	PersonalInfo  PersonalInfo         `json:"personalInfo"`
	SummaryPoints []string             `json:"summaryPoints"`
	Education     []EducationEntry     `json:"education"`
	Experience    []ExperienceEntry    `json:"experience"`
	Projects      []ProjectEntry       `json:"projects"`
	Technologies  []TechnologyCategory `json:"technologies"`
}

// PersonalInfo captures contact and identity details.
type PersonalInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Website   string `json:"website"`
}

// EducationEntry is one school or program.
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// ExperienceEntry is one role with its responsibility bullets.
type ExperienceEntry struct {
	Company          string   `json:"company"`
	Title            string   `json:"title"`
	Location         string   `json:"location"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Responsibilities []string `json:"responsibilities"`
}

// ProjectEntry is one project with its description bullets.
type ProjectEntry struct {
	Name        string   `json:"name"`
	Link        string   `json:"link"`
	Description []string `json:"description"`
}

// TechnologyCategory groups skills under a named category.
type TechnologyCategory struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// ValidationError reports a missing required field by JSON path.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: missing required field %s", e.Field)
}

// Validate enforces the required personalInfo fields.
func (d Document) Validate() error {
	if strings.TrimSpace(d.PersonalInfo.FirstName) == "" {
		return &ValidationError{Field: "personalInfo.firstName"}
	}
	if strings.TrimSpace(d.PersonalInfo.Email) == "" {
		return &ValidationError{Field: "personalInfo.email"}
	}
	return nil
}

// SchemaMetadata carries optional structural hints extracted alongside the
// document. Absence of hints is represented by the zero value.
type SchemaMetadata struct {
	SectionOrder []string `json:"sectionOrder"`
	Confidence   float64  `json:"confidence"`
}
