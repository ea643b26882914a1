/*
Copyright 2026 jr42.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package clock provides the monotonic clock and single-shot deadline
// timer the FSM uses for retransmission scheduling and lease-timer
// expiry. It exists so tests can inject a fake clock instead of
// sleeping real time, the same way spec.md's set_timeout/
// set_timeout_seconds test hooks require.
package clock

import "time"

// Clock is the source of monotonic time for a device. The real
// implementation wraps time.Now(); tests substitute a FakeClock.
type Clock interface {
	// Now returns the current monotonic instant.
	Now() time.Time

	// AfterFunc schedules f to run once after d has elapsed and returns
	// a Timer that can cancel it. Mirrors time.AfterFunc's contract.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable single-shot deadline, matching time.Timer's
// externally visible contract (Stop returns whether the fire was
// prevented).
type Timer interface {
	Stop() bool
}

// Real is the production Clock backed by the wall/monotonic clock the
// Go runtime provides through time.Now() and time.AfterFunc.
type Real struct{}

// New returns the production Clock.
func New() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
