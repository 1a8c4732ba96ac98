package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeLegacySummaryAndTechnologies(t *testing.T) {
	raw := []byte(`{
  "personalInfo": {"firstName": "Ann", "email": "a@x.com"},
  "summary": "Built X.\n\nShipped Y.",
  "technologies": {"languages": ["Go"], "frontend": []}
}`)

	doc, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	wantPoints := []string{"Built X.", "Shipped Y."}
	if !reflect.DeepEqual(doc.SummaryPoints, wantPoints) {
		t.Fatalf("summary points = %#v, want %#v", doc.SummaryPoints, wantPoints)
	}

	wantTech := []TechnologyCategory{{Category: "Programming Languages", Items: []string{"Go"}}}
	if !reflect.DeepEqual(doc.Technologies, wantTech) {
		t.Fatalf("technologies = %#v, want %#v", doc.Technologies, wantTech)
	}
}

func TestNormalizeLegacyTechnologyOrdering(t *testing.T) {
	raw := []byte(`{
  "personalInfo": {"firstName": "Ann", "email": "a@x.com"},
  "technologies": {
    "testingAndDebugging": ["delve"],
    "languages": ["Go", "Python"],
    "databases": {"sql": ["Postgres"], "nosql": ["Redis"]},
    "cloudAndDevOps": ["AWS"]
  }
}`)

	doc, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	wantOrder := []string{
		"Programming Languages",
		"SQL Databases",
		"NoSQL Databases",
		"Cloud & DevOps",
		"Testing & Debugging",
	}
	if len(doc.Technologies) != len(wantOrder) {
		t.Fatalf("categories = %d, want %d (%#v)", len(doc.Technologies), len(wantOrder), doc.Technologies)
	}
	for i, want := range wantOrder {
		if doc.Technologies[i].Category != want {
			t.Fatalf("category[%d] = %q, want %q", i, doc.Technologies[i].Category, want)
		}
	}
}

func TestNormalizeCurrentShapePassesThrough(t *testing.T) {
	raw := []byte(`{
  "personalInfo": {"firstName": "Ann", "email": "a@x.com"},
  "summaryPoints": ["Did a thing"],
  "experience": [{"company": "Acme", "title": "Eng", "responsibilities": ["Shipped"]}],
  "technologies": [{"category": "Backend", "items": ["Gin"]}]
}`)

	doc, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(doc.SummaryPoints) != 1 || doc.SummaryPoints[0] != "Did a thing" {
		t.Fatalf("summary points = %#v", doc.SummaryPoints)
	}
	if len(doc.Technologies) != 1 || doc.Technologies[0].Category != "Backend" {
		t.Fatalf("technologies = %#v", doc.Technologies)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := [][]byte{
		[]byte(`{"personalInfo":{"firstName":"Ann","email":"a@x.com"},"summary":"- one\n- two","technologies":{"backend":["Gin"]}}`),
		[]byte(`{"personalInfo":{"firstName":"Bo","email":"b@x.com"},"summary":"just a sentence"}`),
		[]byte(`{"personalInfo":{"firstName":"Cy","email":"c@x.com"},"summaryPoints":[],"technologies":[]}`),
		[]byte(`{"personalInfo":{"firstName":"Di","email":"d@x.com"},"summary":"","projects":[{"name":"p","description":["d1"]}]}`),
	}

	for i, raw := range inputs {
		once, err := Normalize(raw)
		if err != nil {
			t.Fatalf("input %d: first normalize: %v", i, err)
		}
		encoded, err := json.Marshal(once)
		if err != nil {
			t.Fatalf("input %d: marshal: %v", i, err)
		}
		twice, err := Normalize(encoded)
		if err != nil {
			t.Fatalf("input %d: second normalize: %v", i, err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("input %d: normalize not idempotent:\nonce:  %#v\ntwice: %#v", i, once, twice)
		}
	}
}

func TestSplitSummary(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  \n ", nil},
		{"no delimiters", "One plain sentence.", []string{"One plain sentence."}},
		{"blank line boundary", "Built X.\n\nShipped Y.", []string{"Built X.", "Shipped Y."}},
		{"bullet markers", "- one\n- two\n* three", []string{"one", "two", "three"}},
		{"unicode bullets", "• alpha\n•beta", []string{"alpha", "beta"}},
		{"continuation lines", "First line\nstill first.\n\nSecond.", []string{"First line still first.", "Second."}},
		{"dash inside text", "well-known phrase", []string{"well-known phrase"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitSummary(tc.in)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("SplitSummary(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidateNamesMissingField(t *testing.T) {
	doc := Document{PersonalInfo: PersonalInfo{FirstName: "Ann"}}
	err := doc.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "personalInfo.email" {
		t.Fatalf("field = %q, want personalInfo.email", verr.Field)
	}

	doc = Document{PersonalInfo: PersonalInfo{Email: "a@x.com"}}
	err = doc.Validate()
	verr, ok = err.(*ValidationError)
	if !ok || verr.Field != "personalInfo.firstName" {
		t.Fatalf("expected firstName validation error, got %v", err)
	}
}
