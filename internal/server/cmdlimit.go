package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/tilewave/internal/config"
)

// CommandLimiter counts commands a client IP sent that could not be parsed
// and locks the IP out once it reaches the limit. Each further lockout
// doubles in length up to the configured maximum.
type CommandLimiter struct {
	mu                sync.Mutex
	offenders         map[string]*offenderInfo
	maxInvalid        int
	lockoutSeconds    int
	maxLockoutSeconds int
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
	now               func() time.Time
}

type offenderInfo struct {
	invalid      int
	lockedUntil  time.Time
	lockoutCount int
}

// NewCommandLimiter creates a limiter with the given config and starts its
// cleanup goroutine. Call Stop to end it.
func NewCommandLimiter(cfg config.RateLimitConfig) *CommandLimiter {
	cl := &CommandLimiter{
		offenders:         make(map[string]*offenderInfo),
		maxInvalid:        cfg.MaxInvalid,
		lockoutSeconds:    cfg.LockoutSeconds,
		maxLockoutSeconds: cfg.MaxLockoutSeconds,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
		now:               time.Now,
	}

	if cl.maxInvalid == 0 {
		cl.maxInvalid = 10
	}
	if cl.lockoutSeconds == 0 {
		cl.lockoutSeconds = 30
	}
	if cl.maxLockoutSeconds == 0 {
		cl.maxLockoutSeconds = 300
	}

	go cl.cleanupLoop()
	return cl
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (cl *CommandLimiter) Stop() {
	cl.stopOnce.Do(func() { close(cl.stopCleanup) })
}

// IsLocked reports whether ip is locked out and for how much longer.
func (cl *CommandLimiter) IsLocked(ip string) (bool, time.Duration) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	info, ok := cl.offenders[ip]
	if !ok {
		return false, 0
	}
	if now := cl.now(); now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordInvalid counts one unparseable command from ip.
// Returns true if ip is now locked out, along with the lockout duration.
func (cl *CommandLimiter) RecordInvalid(ip string) (bool, time.Duration) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	info, ok := cl.offenders[ip]
	if !ok {
		info = &offenderInfo{}
		cl.offenders[ip] = info
	}

	now := cl.now()
	if now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}

	info.invalid++
	if info.invalid < cl.maxInvalid {
		return false, 0
	}

	info.lockoutCount++
	lockout := time.Duration(cl.lockoutSeconds) * time.Second
	maxLockout := time.Duration(cl.maxLockoutSeconds) * time.Second
	for i := 1; i < info.lockoutCount; i++ {
		// Check before doubling to prevent overflow
		if lockout >= maxLockout/2 {
			lockout = maxLockout
			break
		}
		lockout *= 2
	}
	if lockout > maxLockout {
		lockout = maxLockout
	}
	info.lockedUntil = now.Add(lockout)
	info.invalid = 0
	return true, lockout
}

// RecordValid clears the invalid count of ip. Lockout history is kept so a
// repeat offender still gets the longer lockout.
func (cl *CommandLimiter) RecordValid(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if info, ok := cl.offenders[ip]; ok {
		info.invalid = 0
	}
}

// Invalid returns the current invalid command count for ip.
func (cl *CommandLimiter) Invalid(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if info, ok := cl.offenders[ip]; ok {
		return info.invalid
	}
	return 0
}

func (cl *CommandLimiter) cleanupLoop() {
	ticker := time.NewTicker(cl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stopCleanup:
			return
		case <-ticker.C:
			cl.cleanup()
		}
	}
}

// cleanup drops entries unlocked for at least 10 minutes with no recent invalid commands.
func (cl *CommandLimiter) cleanup() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cutoff := cl.now().Add(-10 * time.Minute)
	for ip, info := range cl.offenders {
		if info.lockedUntil.Before(cutoff) && info.invalid == 0 {
			delete(cl.offenders, ip)
		}
	}
}
