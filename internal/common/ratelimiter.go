package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

type RateLimiter struct {
	mu                   sync.Mutex
	restrictions         []Restriction          // Restrictions to consider
	history              []time.Time            // History of requests
	duration             time.Duration          // Min duration to wait for all restrictions to be lifted
	pendingVitalRequests map[uuid.UUID]struct{} // Set of pending vital requests
	clock                Clock
}

func NewRateLimiter(restrictions []Restriction, clock Clock) *RateLimiter {
	rl := &RateLimiter{
		restrictions:         append([]Restriction(nil), restrictions...),
		pendingVitalRequests: make(map[uuid.UUID]struct{}),
		clock:                clock,
	}
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	return rl
}

// Decide if a request is allowed.
// Non vital requests are rejected straight away when the restrictions
// do not allow them or when vital requests are waiting.
// Vital requests block until they are allowed or the context is done
func (rl *RateLimiter) Allowed(ctx context.Context, vital bool) bool {

	// Give this request a unique identifier
	thisuuid := uuid.New()
	defer rl.forget(thisuuid)

	for {
		wait, allowed := rl.try(thisuuid, vital)
		if allowed {
			return true
		}
		if !vital {
			return false
		}
		log.Debug().Msg(fmt.Sprintf("Vital request %s delayed %.2f seconds", thisuuid, wait.Seconds()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// One attempt at getting through the restrictions.
// Returns the time to wait when not allowed
func (rl *RateLimiter) try(id uuid.UUID, vital bool) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.trim()
	analysis := rl.analyse()
	if analysis.allowed {
		_, pending := rl.pendingVitalRequests[id]
		othersPending := len(rl.pendingVitalRequests) > 0 && !pending
		if vital || !othersPending {
			delete(rl.pendingVitalRequests, id)
			rl.history = append(rl.history, rl.clock.Now())
			return 0, true
		}
		log.Debug().Msg("Rejecting non vital request because vital requests are waiting")
		return 0, false
	}
	if !vital {
		log.Debug().Msg("Rejecting a non vital request because restrictions do not allow it")
		return analysis.wait, false
	}
	rl.pendingVitalRequests[id] = struct{}{}
	return analysis.wait, false
}

func (rl *RateLimiter) forget(id uuid.UUID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.pendingVitalRequests, id)
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim() {
	currentTime := rl.clock.Now()
	// Times are stored in chronological order, so
	// search from the end for the first one too old
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) > rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse() Analysis {

	// Merge the analyses of every restriction
	currentTime := rl.clock.Now()
	var wait time.Duration = 0
	allowed := true
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history, currentTime)
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
