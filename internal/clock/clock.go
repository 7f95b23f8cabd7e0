package clock

import "time"

// Clock provides the current time. Selection windowing and access checks
// depend on it instead of calling time.Now directly so they stay
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// System is the production clock. All times are UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed struct {
	T time.Time
}

func At(t time.Time) Fixed {
	return Fixed{T: t}
}

func (f Fixed) Now() time.Time {
	return f.T
}
