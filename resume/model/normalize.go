package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// envelope defers the shape-dependent fields so legacy payloads can be
// detected before committing to the current Document layout.
type envelope struct {
	PersonalInfo  PersonalInfo      `json:"personalInfo"`
	Summary       json.RawMessage   `json:"summary"`
	SummaryPoints []string          `json:"summaryPoints"`
	Education     []EducationEntry  `json:"education"`
	Experience    []ExperienceEntry `json:"experience"`
	Projects      []ProjectEntry    `json:"projects"`
	Technologies  json.RawMessage   `json:"technologies"`
}

// legacyTechnologies is the fixed-field shape written before categories
// became dynamic.
type legacyTechnologies struct {
	Languages []string `json:"languages"`
	Backend   []string `json:"backend"`
	Frontend  []string `json:"frontend"`
	Databases struct {
		SQL   []string `json:"sql"`
		NoSQL []string `json:"nosql"`
	} `json:"databases"`
	CloudAndDevOps      []string `json:"cloudAndDevOps"`
	CicdAndAutomation   []string `json:"cicdAndAutomation"`
	TestingAndDebugging []string `json:"testingAndDebugging"`
}

// Normalize decodes a stored payload of either the current or the legacy
// shape into a current-shape Document. It is pure and idempotent: feeding
// its own output back in yields the same Document.
func Normalize(raw []byte) (Document, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Document{}, fmt.Errorf("decode document payload: %w", err)
	}

	doc := Document{
		PersonalInfo:  env.PersonalInfo,
		SummaryPoints: env.SummaryPoints,
		Education:     env.Education,
		Experience:    env.Experience,
		Projects:      env.Projects,
	}

	if len(doc.SummaryPoints) == 0 && len(env.Summary) > 0 {
		points, err := summaryPoints(env.Summary)
		if err != nil {
			return Document{}, err
		}
		doc.SummaryPoints = points
	}

	techs, err := technologyCategories(env.Technologies)
	if err != nil {
		return Document{}, err
	}
	doc.Technologies = techs

	ensureSequences(&doc)
	return doc, nil
}

// summaryPoints handles the legacy single-string summary. Strings are split
// into points; an array is taken as already-migrated data.
func summaryPoints(raw json.RawMessage) ([]string, error) {
	switch firstByte(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		return SplitSummary(s), nil
	case '[':
		var points []string
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		return points, nil
	default:
		return nil, nil
	}
}

// SplitSummary breaks a free-form summary into points on blank-line and
// bullet-marker boundaries. A string without delimiters becomes a single
// point; a blank string becomes no points.
func SplitSummary(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var points []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		point := strings.TrimSpace(strings.Join(current, " "))
		if point != "" {
			points = append(points, point)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if marker, rest := trimBulletMarker(trimmed); marker {
			flush()
			if rest != "" {
				current = append(current, rest)
			}
			continue
		}
		current = append(current, trimmed)
	}
	flush()
	return points
}

// trimBulletMarker recognizes "- ", "* " and "•" prefixes. A dash or
// asterisk without a trailing space is treated as text, not a marker.
func trimBulletMarker(line string) (bool, string) {
	for _, marker := range []string{"- ", "* ", "•"} {
		if strings.HasPrefix(line, marker) {
			return true, strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
	}
	return false, ""
}

// legacyCategoryNames maps legacy fixed fields to display categories, in the
// order the legacy schema listed them.
var legacyCategoryNames = []struct {
	field    string
	category string
}{
	{"languages", "Programming Languages"},
	{"backend", "Backend"},
	{"frontend", "Frontend"},
	{"databases.sql", "SQL Databases"},
	{"databases.nosql", "NoSQL Databases"},
	{"cloudAndDevOps", "Cloud & DevOps"},
	{"cicdAndAutomation", "CI/CD & Automation"},
	{"testingAndDebugging", "Testing & Debugging"},
}

func technologyCategories(raw json.RawMessage) ([]TechnologyCategory, error) {
	switch firstByte(raw) {
	case '[':
		var categories []TechnologyCategory
		if err := json.Unmarshal(raw, &categories); err != nil {
			return nil, fmt.Errorf("decode technologies: %w", err)
		}
		return categories, nil
	case '{':
		var legacy legacyTechnologies
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy technologies: %w", err)
		}
		return migrateLegacyTechnologies(legacy), nil
	default:
		return nil, nil
	}
}

func migrateLegacyTechnologies(legacy legacyTechnologies) []TechnologyCategory {
	byField := map[string][]string{
		"languages":           legacy.Languages,
		"backend":             legacy.Backend,
		"frontend":            legacy.Frontend,
		"databases.sql":       legacy.Databases.SQL,
		"databases.nosql":     legacy.Databases.NoSQL,
		"cloudAndDevOps":      legacy.CloudAndDevOps,
		"cicdAndAutomation":   legacy.CicdAndAutomation,
		"testingAndDebugging": legacy.TestingAndDebugging,
	}

	var out []TechnologyCategory
	for _, entry := range legacyCategoryNames {
		items := byField[entry.field]
		// Empty legacy fields are dropped, never emitted as empty categories.
		if len(items) == 0 {
			continue
		}
		out = append(out, TechnologyCategory{Category: entry.category, Items: items})
	}
	return out
}

// ensureSequences pins every sequence to non-nil so repeated
// marshal/normalize round trips compare equal.
func ensureSequences(doc *Document) {
	if doc.SummaryPoints == nil {
		doc.SummaryPoints = []string{}
	}
	if doc.Education == nil {
		doc.Education = []EducationEntry{}
	}
	if doc.Experience == nil {
		doc.Experience = []ExperienceEntry{}
	}
	if doc.Projects == nil {
		doc.Projects = []ProjectEntry{}
	}
	if doc.Technologies == nil {
		doc.Technologies = []TechnologyCategory{}
	}
	for i := range doc.Experience {
		if doc.Experience[i].Responsibilities == nil {
			doc.Experience[i].Responsibilities = []string{}
		}
	}
	for i := range doc.Projects {
		if doc.Projects[i].Description == nil {
			doc.Projects[i].Description = []string{}
		}
	}
	for i := range doc.Technologies {
		if doc.Technologies[i].Items == nil {
			doc.Technologies[i].Items = []string{}
		}
	}
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
