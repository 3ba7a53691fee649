package clientview

import (
	"sync"
	"time"
)

// typingIdleTimeout is how long after the last keystroke the composer
// counts as idle and the stop signal goes out on its own.
const typingIdleTimeout = 2000 * time.Millisecond

// TypingDebouncer turns raw keystrokes into the start/stop signal pair
// the coordinator expects: the first keystroke emits a start, every
// keystroke restarts the idle timer, and 2000ms of inactivity emits an
// automatic stop. Stop clears the signal immediately, as a send or an
// unmount must.
type TypingDebouncer struct {
	mu     sync.Mutex
	idle   time.Duration
	emit   func(isTyping bool)
	timer  *time.Timer
	active bool

	// gen invalidates an expiry that fired just before its timer was
	// restarted or stopped.
	gen uint64
}

// NewTypingDebouncer wires emit to the transport's typing signal. A
// zero idle uses the 2000ms contract default.
func NewTypingDebouncer(idle time.Duration, emit func(isTyping bool)) *TypingDebouncer {
	if idle <= 0 {
		idle = typingIdleTimeout
	}
	return &TypingDebouncer{idle: idle, emit: emit}
}

// Keystroke registers composer activity. The first one in a burst
// emits typing-start; each one pushes the automatic stop out by the
// idle window.
func (d *TypingDebouncer) Keystroke() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if !d.active {
		d.active = true
		d.emit(true)
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.idle, func() { d.expire(gen) })
}

// Stop clears the signal now: called when the message is sent, the
// composer is emptied, or the view unmounts.
func (d *TypingDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	if !d.active {
		return
	}
	d.active = false
	d.emit(false)
}

func (d *TypingDebouncer) expire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen || !d.active {
		return
	}
	d.active = false
	d.emit(false)
}
