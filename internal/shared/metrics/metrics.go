package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	extractionStartedTotal   atomic.Uint64
	extractionCompletedTotal atomic.Uint64
	extractionFailedTotal    atomic.Uint64

	generationClaimedTotal atomic.Uint64
	generationReadyTotal   atomic.Uint64
	generationFailedTotal  atomic.Uint64

	notifyPublishedTotal atomic.Uint64
	notifyDroppedTotal   atomic.Uint64

	generationDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncExtractionStarted increments the extraction started counter.
func IncExtractionStarted() { extractionStartedTotal.Add(1) }

// IncExtractionCompleted increments the extraction completed counter.
func IncExtractionCompleted() { extractionCompletedTotal.Add(1) }

// IncExtractionFailed increments the extraction failed counter.
func IncExtractionFailed() { extractionFailedTotal.Add(1) }

// IncGenerationClaimed increments the generation claim counter.
func IncGenerationClaimed() { generationClaimedTotal.Add(1) }

// IncGenerationReady increments the successful generation counter.
func IncGenerationReady() { generationReadyTotal.Add(1) }

// IncGenerationFailed increments the failed generation counter.
func IncGenerationFailed() { generationFailedTotal.Add(1) }

// IncNotifyPublished increments the delivered notification counter.
func IncNotifyPublished() { notifyPublishedTotal.Add(1) }

// IncNotifyDropped increments the dropped notification counter.
func IncNotifyDropped() { notifyDroppedTotal.Add(1) }

// ObserveGenerationDurationMs records an artifact render duration.
func ObserveGenerationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	generationDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "extraction_started_total", "Total extractions started", extractionStartedTotal.Load())
	writeCounter(&buf, "extraction_completed_total", "Total extractions completed", extractionCompletedTotal.Load())
	writeCounter(&buf, "extraction_failed_total", "Total extractions failed", extractionFailedTotal.Load())
	writeCounter(&buf, "generation_claimed_total", "Total artifact generations claimed", generationClaimedTotal.Load())
	writeCounter(&buf, "generation_ready_total", "Total artifacts rendered", generationReadyTotal.Load())
	writeCounter(&buf, "generation_failed_total", "Total artifact generations failed", generationFailedTotal.Load())
	writeCounter(&buf, "notify_published_total", "Total notification events delivered", notifyPublishedTotal.Load())
	writeCounter(&buf, "notify_dropped_total", "Total notification events dropped", notifyDroppedTotal.Load())
	writeHistogram(&buf, "generation_duration_ms", "Artifact generation duration in milliseconds", generationDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
