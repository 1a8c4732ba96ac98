package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"resume-hub/internal/llm"
	"resume-hub/internal/usage"
	"resume-hub/resume/model"
)

// scriptedLLM returns one canned response per call, in order.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Completion, error) {
	_ = ctx
	_ = messages
	_ = opts
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return llm.Completion{}, s.errs[idx]
	}
	if idx >= len(s.responses) {
		return llm.Completion{}, errors.New("no scripted response")
	}
	return llm.Completion{Content: s.responses[idx], TotalTokens: 10}, nil
}

const validDocJSON = `{"personalInfo":{"firstName":"Ann","email":"a@x.com"},"summaryPoints":["p"],"technologies":[]}`
const validMetaJSON = `{"sectionOrder":["summary","experience"],"confidence":0.9}`

func longText() string {
	return strings.Repeat("resume content ", 10)
}

func TestExtractRejectsShortInputBeforeAnyCall(t *testing.T) {
	client := &scriptedLLM{}
	adapter := &Adapter{LLM: client}

	_, err := adapter.Extract(context.Background(), strings.Repeat("x", 40), "owner-1")
	if !errors.Is(err, ErrInsufficientInput) {
		t.Fatalf("expected ErrInsufficientInput, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no model calls, got %d", client.calls)
	}
}

func TestExtractStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + validDocJSON + "\n```"
	client := &scriptedLLM{responses: []string{fenced, validMetaJSON}}
	adapter := &Adapter{LLM: client}

	result, err := adapter.Extract(context.Background(), longText(), "owner-1")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Document.PersonalInfo.FirstName != "Ann" {
		t.Fatalf("firstName = %q", result.Document.PersonalInfo.FirstName)
	}
	if len(result.Metadata.SectionOrder) != 2 {
		t.Fatalf("section order = %#v", result.Metadata.SectionOrder)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %#v", result.Warnings)
	}
}

func TestExtractRepairsTrailingCommasAndSmartQuotes(t *testing.T) {
	broken := `Here you go: {"personalInfo":{"firstName":“Ann”,"email":"a@x.com",},"summaryPoints":["p",],}`
	client := &scriptedLLM{responses: []string{broken, validMetaJSON}}
	adapter := &Adapter{LLM: client}

	result, err := adapter.Extract(context.Background(), longText(), "owner-1")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Document.PersonalInfo.FirstName != "Ann" {
		t.Fatalf("firstName = %q", result.Document.PersonalInfo.FirstName)
	}
}

func TestExtractUnrecoverableResponse(t *testing.T) {
	client := &scriptedLLM{responses: []string{"sorry, I cannot help with that", validMetaJSON}}
	adapter := &Adapter{LLM: client}

	_, err := adapter.Extract(context.Background(), longText(), "owner-1")
	if !errors.Is(err, ErrUnrecoverableResponse) {
		t.Fatalf("expected ErrUnrecoverableResponse, got %v", err)
	}
}

func TestExtractValidationNamesMissingField(t *testing.T) {
	missingEmail := `{"personalInfo":{"firstName":"Ann"}}`
	client := &scriptedLLM{responses: []string{missingEmail, validMetaJSON}}
	adapter := &Adapter{LLM: client}

	_, err := adapter.Extract(context.Background(), longText(), "owner-1")
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *model.ValidationError, got %v", err)
	}
	if verr.Field != "personalInfo.email" {
		t.Fatalf("field = %q", verr.Field)
	}
}

func TestExtractSchemaMetadataFailureDegrades(t *testing.T) {
	client := &scriptedLLM{
		responses: []string{validDocJSON, "not json at all"},
	}
	adapter := &Adapter{LLM: client}

	result, err := adapter.Extract(context.Background(), longText(), "owner-1")
	if err != nil {
		t.Fatalf("extract should not fail on metadata sub-call: %v", err)
	}
	if len(result.Metadata.SectionOrder) != 0 {
		t.Fatalf("expected default metadata, got %#v", result.Metadata)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %#v", result.Warnings)
	}
}

type failingMeter struct{ calls int }

func (m *failingMeter) Add(ctx context.Context, ownerID string, tokens int64) (usage.Record, error) {
	m.calls++
	return usage.Record{}, errors.New("meter unavailable")
}

func TestExtractMeteringFailureIsIgnored(t *testing.T) {
	client := &scriptedLLM{responses: []string{validDocJSON, validMetaJSON}}
	meter := &failingMeter{}
	adapter := &Adapter{LLM: client, Meter: meter}

	result, err := adapter.Extract(context.Background(), longText(), "owner-1")
	if err != nil {
		t.Fatalf("extract should survive metering failure: %v", err)
	}
	if meter.calls != 1 {
		t.Fatalf("expected one metering attempt, got %d", meter.calls)
	}
	if result.TokensUsed != 20 {
		t.Fatalf("tokens used = %d, want 20", result.TokensUsed)
	}
}

func TestIsolateJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"nested braces", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"hi\" {"}`, `{"a":"say \"hi\" {"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "plain text", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := isolateJSONObject(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("isolateJSONObject(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestStripTrailingCommas(t *testing.T) {
	in := `{"a":[1,2,],"b":{"c":1,},"s":"x,}"}`
	want := `{"a":[1,2],"b":{"c":1},"s":"x,}"}`
	if got := stripTrailingCommas(in); got != want {
		t.Fatalf("stripTrailingCommas = %q, want %q", got, want)
	}
}
