package usecase

import (
	"math"
	"sync"
	"time"
)

const (
	shortCooldown = 5 * time.Second
	burstCooldown = 20 * time.Second
	burstWindow   = 60 * time.Second
	maxBurst      = 3
)

// UploadLimiter throttles proof submissions per user: a short gap between
// consecutive uploads, and a longer cooldown once a burst is spent. Check and
// Record are split because only attempts that actually reach the classifier
// count against the burst.
type UploadLimiter struct {
	mu    sync.Mutex
	now   func() time.Time
	state map[int64]*uploadState
}

type uploadState struct {
	lastUpload time.Time
	count      int
}

func NewUploadLimiter() *UploadLimiter {
	return &UploadLimiter{now: time.Now, state: make(map[int64]*uploadState)}
}

// Check reports whether tgID may submit now. When blocked, wait holds the
// whole seconds remaining, rounded up.
func (l *UploadLimiter) Check(tgID int64) (ok bool, wait int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state[tgID]
	if st == nil {
		return true, 0
	}
	now := l.now()
	elapsed := now.Sub(st.lastUpload)

	if elapsed > burstWindow {
		st.count = 0
	}
	if st.count >= maxBurst {
		if remaining := secondsLeft(burstCooldown - elapsed); remaining > 0 {
			return false, remaining
		}
		st.count = 0
		return true, 0
	}
	if st.count > 0 {
		if remaining := secondsLeft(shortCooldown - elapsed); remaining > 0 {
			return false, remaining
		}
	}
	return true, 0
}

// Record charges one attempt against tgID's burst.
func (l *UploadLimiter) Record(tgID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state[tgID]
	if st == nil {
		st = &uploadState{}
		l.state[tgID] = st
	}
	st.lastUpload = l.now()
	st.count++
}

func secondsLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
