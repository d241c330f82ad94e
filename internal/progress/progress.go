// Package progress turns byte-level read activity on a download
// stream into best-effort events for admin observers, without slowing
// down the stream itself.
//
// Grounded on the teacher's internal/engine download path, which wraps
// the transfer in instrumentation and pushes UI events off the hot
// path (internal/engine/downloads.go's runtime.EventsEmit calls), and
// on internal/network/bandwidth.go's atomic-gated fast path for the
// "disabled costs nothing" property. Since this build has no Wails
// runtime to emit through, events are fanned out over a bounded
// channel hub instead, consumed by the admin websocket.
package progress

import (
	"io"
	"sync"
	"time"
)

// DownloadProgress is one observation of a transfer in flight.
type DownloadProgress struct {
	TransactionID string `json:"transaction_id"`
	FilePath      string `json:"file_path"`
	ReadBytes     int64  `json:"read_bytes"`
	TotalBytes    int64  `json:"total_bytes"`
	Done          bool   `json:"done"`
	Error         string `json:"error,omitempty"`
}

// Reader wraps an io.Reader, counting bytes read and emitting a
// DownloadProgress on the owning Bus after each Read call. Emission is
// non-blocking: a full subscriber never slows the transfer.
type Reader struct {
	io.Reader
	transactionID string
	filePath      string
	total         int64
	read          int64
	bus           *Bus
}

// NewReader instruments src for the given transaction and file.
func NewReader(src io.Reader, bus *Bus, transactionID, filePath string, total int64) *Reader {
	return &Reader{Reader: src, transactionID: transactionID, filePath: filePath, total: total, bus: bus}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.bus.publish(DownloadProgress{
			TransactionID: r.transactionID,
			FilePath:      r.filePath,
			ReadBytes:     r.read,
			TotalBytes:    r.total,
		})
	}
	if err == io.EOF {
		r.bus.publish(DownloadProgress{
			TransactionID: r.transactionID,
			FilePath:      r.filePath,
			ReadBytes:     r.read,
			TotalBytes:    r.total,
			Done:          true,
		})
	}
	return n, err
}

// Fail reports a transfer that ended before completion, e.g. a client
// disconnect mid-stream.
func (r *Reader) Fail(cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	r.bus.publish(DownloadProgress{
		TransactionID: r.transactionID,
		FilePath:      r.filePath,
		ReadBytes:     r.read,
		TotalBytes:    r.total,
		Done:          true,
		Error:         msg,
	})
}

// defaultSubscriberBuffer bounds how far a slow admin observer can lag
// behind the live event stream before its events start dropping.
const defaultSubscriberBuffer = 256

// Bus is a bounded fan-out broadcaster of DownloadProgress events.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan DownloadProgress]struct{}
	bufferSize  int
}

// NewBus constructs an empty broadcast hub.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[chan DownloadProgress]struct{}),
		bufferSize:  defaultSubscriberBuffer,
	}
}

// Subscribe registers a new observer channel. Callers must call the
// returned cancel function when done to avoid leaking the channel.
func (b *Bus) Subscribe() (<-chan DownloadProgress, func()) {
	ch := make(chan DownloadProgress, b.bufferSize)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// publish fans an event out to all subscribers. A subscriber whose
// buffer is full has the event dropped for it rather than blocking the
// transfer that produced it.
func (b *Bus) publish(evt DownloadProgress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports the current observer count, useful for
// metrics/logging and tests.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Throttle wraps a progress-consuming func so it fires only when the
// percentage differs from the last value it fired with and at least
// interval has passed since it last fired; a value of 100 fires
// regardless of the interval. The task manager uses it to pace task
// progress persistence (§4.5).
func Throttle(interval time.Duration, fn func(percent int)) func(percent int) {
	var mu sync.Mutex
	var last time.Time
	lastPercent := -1

	return func(percent int) {
		mu.Lock()
		defer mu.Unlock()

		if percent == lastPercent {
			return
		}

		now := time.Now()
		percentChanged := lastPercent < 0 || abs(percent-lastPercent) >= 1
		if percent == 100 || (percentChanged && now.Sub(last) >= interval) {
			last = now
			lastPercent = percent
			fn(percent)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
