package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Scanner detects ingredients in a fridge photo.
type Scanner interface {
	Scan(ctx context.Context, image []byte) (string, error)
}

// ScanResult is reported once per photo scan that was not superseded.
type ScanResult struct {
	Ingredients string
	Err         error
}

// MergeIngredients joins detected and typed ingredients, detected first.
func MergeIngredients(detected, typed string) string {
	detected = strings.TrimSpace(detected)
	typed = strings.TrimSpace(typed)
	switch {
	case detected == "":
		return typed
	case typed == "":
		return detected
	}
	return detected + ", " + typed
}

// Resolver runs photo scans in the background and owns the detected
// ingredients text. Only the most recent scan may write it: starting a new
// scan, skipping the photo or resetting discards results still in flight.
type Resolver struct {
	scanner  Scanner
	timeout  time.Duration
	onResult func(ScanResult)

	mu       sync.Mutex
	gen      uint64
	done     chan struct{} // closed when the latest scan resolves
	detected string
	scanning bool
	skipped  bool
}

// NewResolver returns a resolver using scanner. A nil scanner disables Begin.
func NewResolver(scanner Scanner, timeout time.Duration, onResult func(ScanResult)) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{scanner: scanner, timeout: timeout, onResult: onResult}
}

// Begin starts scanning image and returns immediately.
func (r *Resolver) Begin(image []byte) error {
	if r.scanner == nil {
		return ErrNoScanner
	}

	r.mu.Lock()
	r.gen++
	gen := r.gen
	done := make(chan struct{})
	r.done = done
	r.scanning = true
	r.skipped = false
	r.mu.Unlock()

	go r.run(gen, done, image)
	return nil
}

func (r *Resolver) run(gen uint64, done chan struct{}, image []byte) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	text, err := r.scanner.Scan(ctx, image)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = ErrNoIngredients
	}

	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		log.Debug().Uint64("scan", gen).Msg("discarding superseded photo scan")
		return
	}
	r.scanning = false
	if err == nil {
		r.detected = text
	}
	r.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("photo scan failed, continuing without detected ingredients")
	}
	if r.onResult != nil {
		r.onResult(ScanResult{Ingredients: text, Err: err})
	}
}

// Await blocks until the latest scan resolves, wait elapses or ctx ends.
// It reports whether no scan is pending afterwards. A wait of zero never
// blocks, reproducing the unsynchronised read of the first release.
func (r *Resolver) Await(ctx context.Context, wait time.Duration) bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return true
	}
	if wait <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		log.Warn().Dur("wait", wait).Msg("photo scan still running, compiling without it")
		return false
	case <-ctx.Done():
		return false
	}
}

// Detected returns the ingredients found by the latest successful scan.
func (r *Resolver) Detected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detected
}

// Scanning reports whether a scan is in flight.
func (r *Resolver) Scanning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanning
}

// Skipped reports whether the photo step was bypassed.
func (r *Resolver) Skipped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}

// Skip records that the photo path was bypassed. A scan still running is
// abandoned so compilation never waits for it; text from an earlier
// successful scan is kept.
func (r *Resolver) Skip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.done = nil
	r.scanning = false
	r.skipped = true
}

// Reset forgets all scan state.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.done = nil
	r.detected = ""
	r.scanning = false
	r.skipped = false
}
