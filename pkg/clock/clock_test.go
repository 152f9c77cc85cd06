package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReal_ReturnsUTC(t *testing.T) {
	now := Real{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now().UTC(), now, time.Second)
}

func TestFake_FrozenUntilAdvanced(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	assert.Equal(t, start, clk.Now())
	assert.Equal(t, start, clk.Now(), "repeated reads should not move the clock")

	clk.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clk.Now())
}

func TestFake_Set(t *testing.T) {
	clk := NewFake(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	later := time.Date(2025, 3, 11, 17, 30, 0, 0, time.UTC)
	clk.Set(later)
	assert.Equal(t, later, clk.Now())
}

func TestFake_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	clk := NewFake(time.Date(2025, 3, 10, 11, 0, 0, 0, loc))

	now := clk.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, 8, now.Hour())
}
