package websocketPkg

import "time"

const (
	DefaultBackoffFloor   = time.Second
	DefaultBackoffCeiling = 30 * time.Second
)

// Backoff doubles its delay on each failure up to a ceiling. It is not safe
// for concurrent use.
type Backoff struct {
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if floor <= 0 {
		floor = DefaultBackoffFloor
	}
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{floor: floor, ceiling: ceiling, current: floor}
}

// Next returns the delay to wait before the next attempt and grows it.
func (b *Backoff) Next() time.Duration {
	d := b.current
	b.current = min(b.current*2, b.ceiling)
	return d
}

func (b *Backoff) Reset() {
	b.current = b.floor
}

// Peek returns the delay Next would return.
func (b *Backoff) Peek() time.Duration {
	return b.current
}
