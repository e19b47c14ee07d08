package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeText(t *testing.T) {
	assert.Equal(t, "Gia co phieu FPT tang", SafeText("Gia\tco phieu\n\nFPT  tang\r"))
	assert.Equal(t, "", SafeText(" \n "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestGoSafeRecovers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	GoSafe(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()
}

func TestTruncateDay(t *testing.T) {
	ts := time.Date(2025, 3, 4, 20, 30, 0, 0, time.UTC)
	day := TruncateDay(ts)
	assert.Equal(t, 5, day.Day())
	assert.Equal(t, 0, day.Hour())
	assert.Equal(t, MarketLocation(), day.Location())
}

func TestToPointer(t *testing.T) {
	p := ToPointer(12.5)
	assert.Equal(t, 12.5, *p)
}

func TestFormatThousands(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{106480.4, "106,480"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatThousands(tt.in))
	}
}
