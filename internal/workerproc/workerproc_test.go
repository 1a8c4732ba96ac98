package workerproc

import (
	"testing"

	"resume-hub/internal/queue"
)

func TestParseMessage(t *testing.T) {
	body := `{"recordId":"rec-1","ownerId":"owner-1","requestId":"req-1","enqueuedAt":"2026-08-29T10:00:00Z","version":1}`
	msg, meta, err := ParseMessage(body)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.RecordID != "rec-1" || msg.OwnerID != "owner-1" {
		t.Fatalf("msg = %+v", msg)
	}
	if meta.BodyLen != len(body) || meta.BodySHA == "" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestParseMessageFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", "   "},
		{"garbage", "not json at all"},
		{"missing record id", `{"ownerId":"owner-1"}`},
		{"missing owner id", `{"recordId":"rec-1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseMessage(tc.body)
			if err == nil {
				t.Fatal("expected error")
			}
			if !Unrecoverable(err) {
				t.Fatalf("err %v should be unrecoverable", err)
			}
		})
	}
}

func TestParseMessageEncodedRoundTrip(t *testing.T) {
	payload, err := queue.EncodeMessage(queue.Message{RecordID: "rec-9", OwnerID: "owner-9", Version: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, _, err := ParseMessage(string(payload))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.RecordID != "rec-9" {
		t.Fatalf("recordId = %q", msg.RecordID)
	}
}
