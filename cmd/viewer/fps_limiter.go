package main

import "time"

// fpsLimiter paces the render loop when vsync is off.
type fpsLimiter struct {
	next time.Time
}

// Wait blocks until the next frame is due for the given cap. A cap of zero
// or less disables pacing. Sleeps most of the interval and spins the rest.
func (f *fpsLimiter) Wait(maxFPS int) {
	if maxFPS <= 0 {
		f.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(maxFPS)
	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := time.Until(f.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
	}

	// Resync after a hitch instead of racing to catch up.
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}
