package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucketSize keeps bursts large enough for smooth copy-buffer sized reads
const minBucketSize = 64 * 1024

// Limiter is a token bucket shared by every copy worker of a run, so the
// configured rate caps aggregate throughput rather than per-file throughput.
type Limiter struct {
	bytesPerSecond int64
	mu             sync.Mutex
	tokens         int64     // Available tokens (bytes)
	lastUpdate     time.Time // Last time tokens were refilled
	bucketSize     int64     // Maximum tokens (burst size)
}

// NewLimiter creates a limiter for bytesPerSecond.
// It returns nil when bytesPerSecond is not positive; a nil *Limiter
// means unlimited and is accepted everywhere a limiter is.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	// One second worth of data, 64KB minimum
	bucketSize := bytesPerSecond
	if bucketSize < minBucketSize {
		bucketSize = minBucketSize
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bucketSize,
		lastUpdate:     time.Now(),
		bucketSize:     bucketSize,
	}
}

// Rate returns the configured rate in bytes per second (0 when unlimited)
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.bytesPerSecond
}

// Wait blocks until n tokens are available or ctx is done
func (l *Limiter) Wait(ctx context.Context, n int64) error {
	if l == nil {
		return nil
	}
	if n > l.bucketSize {
		n = l.bucketSize
	}

	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.mu.Unlock()
			return nil
		}

		deficit := n - l.tokens
		wait := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// consume removes tokens after a read
func (l *Limiter) consume(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens -= n
	if l.tokens < 0 {
		l.tokens = 0
	}
}

// refill adds tokens for the elapsed time (must be called with lock held)
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastUpdate)

	add := int64(float64(elapsed) / float64(time.Second) * float64(l.bytesPerSecond))
	if add > 0 {
		l.tokens += add
		if l.tokens > l.bucketSize {
			l.tokens = l.bucketSize
		}
		l.lastUpdate = now
	}
}

// Reader wraps an io.Reader with bandwidth limiting
type Reader struct {
	reader  io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps r so that reads draw from limiter.
// With a nil limiter r is returned unchanged.
func NewReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &Reader{
		reader:  r,
		limiter: limiter,
		ctx:     ctx,
	}
}

// Read implements io.Reader
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	toRead := int64(len(p))
	if toRead > r.limiter.bucketSize {
		toRead = r.limiter.bucketSize
	}

	if err := r.limiter.Wait(r.ctx, toRead); err != nil {
		return 0, err
	}

	n, err := r.reader.Read(p[:toRead])
	if n > 0 {
		r.limiter.consume(int64(n))
	}
	return n, err
}
