package service

import "time"

type settings struct {
	now func() time.Time
}

type Option func(*settings)

// WithClock overrides the time source used for expiry and proration.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) clock() time.Time {
	return s.now().UTC()
}
