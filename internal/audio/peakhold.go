package audio

import (
	"sync"
	"time"
)

// DefaultPeakHoldDuration is how long a peak indication sticks before
// it is allowed to fall back to the live value.
const DefaultPeakHoldDuration = 3 * time.Second

// PeakHolder tracks peak-hold state for the status surface. It runs on
// the status poll loop, never on the capture callback thread.
// It is safe for concurrent use.
type PeakHolder struct {
	mu      sync.Mutex
	floor   float64
	heldL   float64
	heldR   float64
	heldAtL time.Time
	heldAtR time.Time
	holdFor time.Duration
}

// NewPeakHolder returns a PeakHolder resting at the meter floor.
func NewPeakHolder(floor float64) *PeakHolder {
	return &PeakHolder{
		floor:   floor,
		heldL:   floor,
		heldR:   floor,
		holdFor: DefaultPeakHoldDuration,
	}
}

// Update feeds the latest meter values and returns the held peaks.
// A new peak replaces the held one immediately; otherwise the hold
// expires after the hold duration.
func (p *PeakHolder) Update(left, right float64, now time.Time) (heldL, heldR float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if left >= p.heldL || now.Sub(p.heldAtL) > p.holdFor {
		p.heldL = left
		p.heldAtL = now
	}
	if right >= p.heldR || now.Sub(p.heldAtR) > p.holdFor {
		p.heldR = right
		p.heldAtR = now
	}
	return p.heldL, p.heldR
}

// SetHoldDuration updates the peak hold duration.
func (p *PeakHolder) SetHoldDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holdFor = d
}

// Reset drops the held peaks back to the meter floor.
func (p *PeakHolder) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heldL = p.floor
	p.heldR = p.floor
	p.heldAtL = time.Time{}
	p.heldAtR = time.Time{}
}
