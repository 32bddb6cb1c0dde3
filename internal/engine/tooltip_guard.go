package engine

import "time"

type guardState int

const (
	guardDisarmed guardState = iota
	// guardArmed: a timer reports tooltipError if the tooltip never renders.
	guardArmed
	// guardResolved: tooltipError was reported; ref yields its reference id.
	guardResolved
)

// tooltipGuard detects tooltip steps whose target element never appears.
// It is not safe for concurrent use; Instance guards it with its mutex.
type tooltipGuard struct {
	state guardState
	timer *time.Timer
	ref   <-chan string
	// token invalidates timer callbacks that fire after a disarm.
	token uint64
}

// arm starts the timer unless the guard is already armed or resolved.
// fire receives the token it must present to fired.
func (g *tooltipGuard) arm(delay time.Duration, fire func(token uint64)) {
	if g.state != guardDisarmed {
		return
	}
	g.token++
	token := g.token
	g.state = guardArmed
	g.timer = time.AfterFunc(delay, func() { fire(token) })
}

// fired reports whether a timer callback with this token is still current.
func (g *tooltipGuard) fired(token uint64) bool {
	return g.state == guardArmed && g.token == token
}

// resolve records the reference future of the reported tooltipError.
func (g *tooltipGuard) resolve(ref <-chan string) {
	g.state = guardResolved
	g.timer = nil
	g.ref = ref
}

// disarm is the single cancellation path. It returns the reference future
// when a tooltipError had already been reported.
func (g *tooltipGuard) disarm() (ref <-chan string, reported bool) {
	switch g.state {
	case guardArmed:
		if g.timer != nil {
			g.timer.Stop()
		}
	case guardResolved:
		ref, reported = g.ref, true
	}
	g.token++
	g.state = guardDisarmed
	g.timer = nil
	g.ref = nil
	return ref, reported
}
