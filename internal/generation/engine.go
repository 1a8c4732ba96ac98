// Package generation runs the asynchronous artifact render pipeline: claim a
// pending record, render its PDF, store the blob, and flip the record to
// ready or failed.
package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"resume-hub/internal/notify"
	"resume-hub/internal/resumes"
	"resume-hub/internal/shared/metrics"
	"resume-hub/internal/shared/storage/object"
	"resume-hub/internal/shared/telemetry"
	"resume-hub/resume/model"
)

// Renderer turns a structured document into PDF bytes.
type Renderer interface {
	Render(doc model.Document) ([]byte, error)
}

// DocumentSource loads a record and its structured document.
// *resumes.Service satisfies it.
type DocumentSource interface {
	GetDocument(ctx context.Context, ownerID, recordID string) (resumes.Resume, model.Document, error)
}

// Notifier delivers lifecycle events to an owner's subscribers.
type Notifier interface {
	Publish(ownerID string, ev notify.Event)
}

const (
	defaultWorkers   = 4
	defaultTimeout   = 60 * time.Second
	defaultQueueSize = 256
	maxFailureDetail = 500
)

// ErrRenderTimeout indicates a render that exceeded the job deadline.
var ErrRenderTimeout = errors.New("render timed out")

type job struct {
	ownerID  string
	recordID string
}

// Engine is the in-process render worker pool. It implements
// resumes.Generator.
type Engine struct {
	Repo     resumes.Repo
	Blobs    object.ObjectStore
	Docs     DocumentSource
	Renderer Renderer
	Notify   Notifier
	Workers  int
	Timeout  time.Duration

	jobs     chan job
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Start spawns the worker pool. Call once.
func (e *Engine) Start() {
	if e.Workers <= 0 {
		e.Workers = defaultWorkers
	}
	e.jobs = make(chan job, defaultQueueSize)
	for i := 0; i < e.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// Stop drains in-flight jobs and waits for the workers to exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.jobs) })
	e.wg.Wait()
}

// Enqueue schedules a render. It never blocks: a full queue drops the job
// and leaves the record pending, where a later regenerate picks it up.
func (e *Engine) Enqueue(ownerID, recordID string) {
	select {
	case e.jobs <- job{ownerID: ownerID, recordID: recordID}:
	default:
		telemetry.Warn("generation.queue_full", map[string]any{
			"owner_id":  ownerID,
			"record_id": recordID,
		})
	}
}

// Process renders one record synchronously. The queue worker uses it
// instead of the in-process pool.
func (e *Engine) Process(ownerID, recordID string) {
	e.runOne(job{ownerID: ownerID, recordID: recordID})
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for j := range e.jobs {
		e.runOne(j)
	}
}

// runOne isolates a job: a panic in one render never takes down a worker or
// a sibling job.
func (e *Engine) runOne(j job) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("generation.panic", map[string]any{
				"owner_id":  j.ownerID,
				"record_id": j.recordID,
				"panic":     fmt.Sprint(r),
			})
			e.fail(j, fmt.Sprintf("render panicked: %v", r))
		}
	}()
	e.process(j)
}

func (e *Engine) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout())
	defer cancel()

	claimed, err := e.Repo.ClaimGeneration(ctx, j.recordID)
	if err != nil {
		telemetry.Error("generation.claim_error", map[string]any{
			"record_id": j.recordID,
			"error":     err.Error(),
		})
		return
	}
	if !claimed {
		// Deleted, already rendered, or another worker won the claim.
		return
	}

	metrics.IncGenerationClaimed()
	e.publish(j, resumes.StatusGenerating, "")
	started := time.Now()

	_, doc, err := e.Docs.GetDocument(ctx, j.ownerID, j.recordID)
	if err != nil {
		e.fail(j, fmt.Sprintf("load document: %v", err))
		return
	}

	pdf, err := e.render(ctx, doc)
	if err != nil {
		e.fail(j, fmt.Sprintf("render: %v", err))
		return
	}

	key := resumes.ArtifactKeyFor(j.ownerID, j.recordID)
	if _, err := e.Blobs.Put(ctx, key, "application/pdf", bytes.NewReader(pdf)); err != nil {
		e.fail(j, fmt.Sprintf("store artifact: %v", err))
		return
	}

	generatedAt := time.Now().UTC()
	if err := e.Repo.FinishGeneration(ctx, j.recordID, key, generatedAt); err != nil {
		// The record left the generating state underneath us, most likely
		// deleted. The orphaned artifact blob is removed best-effort.
		if rmErr := e.Blobs.Remove(ctx, key); rmErr != nil {
			telemetry.Warn("generation.orphan_artifact", map[string]any{
				"key":   key,
				"error": rmErr.Error(),
			})
		}
		return
	}

	metrics.IncGenerationReady()
	metrics.ObserveGenerationDurationMs(float64(time.Since(started).Milliseconds()))
	e.publish(j, resumes.StatusReady, "")
	telemetry.Info("generation.ready", map[string]any{
		"owner_id":    j.ownerID,
		"record_id":   j.recordID,
		"duration_ms": time.Since(started).Milliseconds(),
		"bytes":       len(pdf),
	})
}

// render bounds the renderer by the job deadline. The render goroutine is
// abandoned on timeout; its result channel is buffered so it can finish and
// be collected.
func (e *Engine) render(ctx context.Context, doc model.Document) ([]byte, error) {
	type result struct {
		pdf []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pdf, err := e.Renderer.Render(doc)
		ch <- result{pdf: pdf, err: err}
	}()

	select {
	case res := <-ch:
		return res.pdf, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s", ErrRenderTimeout, e.timeout())
	}
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout <= 0 {
		return defaultTimeout
	}
	return e.Timeout
}

// fail records the failure with a fresh context so an expired job deadline
// cannot block the state update.
func (e *Engine) fail(j job, detail string) {
	if len(detail) > maxFailureDetail {
		detail = detail[:maxFailureDetail]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Repo.FailGeneration(ctx, j.recordID, detail); err != nil {
		telemetry.Error("generation.fail_update_error", map[string]any{
			"record_id": j.recordID,
			"error":     err.Error(),
		})
		return
	}
	metrics.IncGenerationFailed()
	e.publish(j, resumes.StatusFailed, detail)
	telemetry.Warn("generation.failed", map[string]any{
		"owner_id":  j.ownerID,
		"record_id": j.recordID,
		"detail":    detail,
	})
}

func (e *Engine) publish(j job, status, detail string) {
	if e.Notify == nil {
		return
	}
	e.Notify.Publish(j.ownerID, notify.StatusChangedEvent(j.recordID, status, detail))
}

var _ resumes.Generator = (*Engine)(nil)
