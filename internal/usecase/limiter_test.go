package usecase

import (
	"testing"
	"time"
)

func newTestLimiter() (*UploadLimiter, *time.Time) {
	l := NewUploadLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_FirstUploadAllowed(t *testing.T) {
	l, _ := newTestLimiter()
	if ok, wait := l.Check(1); !ok || wait != 0 {
		t.Errorf("first check: ok=%v wait=%d", ok, wait)
	}
}

func TestLimiter_ShortCooldownBetweenUploads(t *testing.T) {
	l, now := newTestLimiter()

	l.Record(1)
	*now = now.Add(2 * time.Second)
	ok, wait := l.Check(1)
	if ok {
		t.Fatal("second upload within 5s should block")
	}
	if wait != 3 {
		t.Errorf("wait = %d, want 3", wait)
	}

	*now = now.Add(3 * time.Second)
	if ok, _ := l.Check(1); !ok {
		t.Error("upload after short cooldown should pass")
	}
}

func TestLimiter_BurstCooldownAfterThree(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < maxBurst; i++ {
		if ok, _ := l.Check(1); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
		l.Record(1)
		*now = now.Add(6 * time.Second)
	}
	// 6s since the third upload: short gap satisfied, burst not.
	ok, wait := l.Check(1)
	if ok {
		t.Fatal("fourth upload inside burst cooldown should block")
	}
	if wait != 14 {
		t.Errorf("wait = %d, want 14", wait)
	}

	*now = now.Add(15 * time.Second)
	if ok, _ := l.Check(1); !ok {
		t.Error("upload after burst cooldown should pass")
	}
}

func TestLimiter_BurstResetsAfterQuietMinute(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < maxBurst; i++ {
		l.Record(1)
	}
	*now = now.Add(61 * time.Second)
	if ok, _ := l.Check(1); !ok {
		t.Error("burst should reset after a quiet minute")
	}
}

func TestLimiter_UsersAreIndependent(t *testing.T) {
	l, now := newTestLimiter()

	l.Record(1)
	*now = now.Add(time.Second)
	if ok, _ := l.Check(1); ok {
		t.Error("user 1 should be in short cooldown")
	}
	if ok, _ := l.Check(2); !ok {
		t.Error("user 2 must not inherit user 1's cooldown")
	}
}
