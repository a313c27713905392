package clock

import "time"

// Clock supplies timestamps for connections, logins and stored objects
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock
type Func func() time.Time

// Now calls f
func (f Func) Now() time.Time {
	return f()
}

// New returns a Clock reading the system time in UTC
func New() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}
