package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFPSLimiterDisabled(t *testing.T) {
	var f fpsLimiter
	start := time.Now()
	f.Wait(0)
	assert.True(t, f.next.IsZero())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestFPSLimiterPaces(t *testing.T) {
	var f fpsLimiter
	start := time.Now()
	for range 5 {
		f.Wait(100)
	}
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}
