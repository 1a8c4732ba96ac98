// Package workerproc holds the queue-message handling shared by the worker
// entrypoint: payload validation, typed failure classification, and the
// hand-off to the render pipeline.
package workerproc

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"resume-hub/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingField indicates a message without a record or owner ID. Such a
// message can never be processed and should be deleted, not retried.
type ErrMissingField struct {
	Meta  MessageMeta
	Field string
}

func (e ErrMissingField) Error() string { return "missing " + e.Field }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.RecordID) == "" {
		return msg, meta, ErrMissingField{Meta: meta, Field: "record id"}
	}
	if strings.TrimSpace(msg.OwnerID) == "" {
		return msg, meta, ErrMissingField{Meta: meta, Field: "owner id"}
	}
	return msg, meta, nil
}

// Unrecoverable reports whether the parse failure can never succeed on
// retry. Such messages are deleted from the queue.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingField:
		return true
	}
	return false
}

// Processor renders one record. The generation engine satisfies it.
type Processor interface {
	Process(ownerID, recordID string)
}
