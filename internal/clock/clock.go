// Package clock abstracts time so scheduler behavior can be simulated in tests.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock provides the current time in UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock { return systemClock{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
