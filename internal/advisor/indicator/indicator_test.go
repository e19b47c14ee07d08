package indicator

import (
	"math"
	"testing"
	"time"

	"golang-stock-advisor/internal/advisor/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeHistory(closes []float64, volumes []float64) dto.PriceHistory {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]dto.Bar, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = dto.Bar{Date: start.AddDate(0, 0, i), Close: c, Volume: v}
	}
	return dto.NewPriceHistory("TEST", bars)
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestComputeOmitsShortWindows(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name   string
		n      int
		assert func(t *testing.T, s dto.IndicatorSet)
	}{
		{
			name: "single point omits everything",
			n:    1,
			assert: func(t *testing.T, s dto.IndicatorSet) {
				assert.True(t, s.Empty())
				assert.False(t, s.VolumeAnomaly)
			},
		},
		{
			name: "fourteen points has no RSI",
			n:    14,
			assert: func(t *testing.T, s dto.IndicatorSet) {
				assert.Nil(t, s.RSI14)
				assert.Nil(t, s.SMAShort)
				assert.Nil(t, s.MACD)
			},
		},
		{
			name: "fifteen points has RSI only",
			n:    15,
			assert: func(t *testing.T, s dto.IndicatorSet) {
				assert.NotNil(t, s.RSI14)
				assert.Nil(t, s.SMAShort)
				assert.Empty(t, s.Crossover)
			},
		},
		{
			name: "thirty points has MACD line without signal",
			n:    30,
			assert: func(t *testing.T, s dto.IndicatorSet) {
				assert.NotNil(t, s.MACD)
				assert.Nil(t, s.MACDSignal)
				assert.Nil(t, s.MACDHistogram)
				assert.NotNil(t, s.SMAShort)
				assert.Nil(t, s.SMALong)
			},
		},
		{
			name: "fifty one points has everything",
			n:    51,
			assert: func(t *testing.T, s dto.IndicatorSet) {
				assert.NotNil(t, s.SMALong)
				assert.NotEmpty(t, s.Crossover)
				assert.NotNil(t, s.MACDSignal)
				assert.NotNil(t, s.MACDHistogram)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				tt.assert(t, Compute(makeHistory(linear(tt.n, 100, 1), nil), p))
			})
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	closes := make([]float64, 80)
	vols := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
		vols[i] = 1000 + float64(i%7)*150
	}
	h := makeHistory(closes, vols)

	first := Compute(h, DefaultParams())
	second := Compute(h, DefaultParams())
	assert.Equal(t, first, second)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{name: "flat series is neutral", closes: linear(20, 100, 0), want: 50},
		{name: "only gains is 100", closes: linear(20, 100, 1), want: 100},
		{name: "only losses is 0", closes: linear(20, 100, -1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSI(tt.closes, 14)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}

	t.Run("alternating moves stay mid range", func(t *testing.T) {
		closes := []float64{100}
		for i := 0; i < 30; i++ {
			if i%2 == 0 {
				closes = append(closes, closes[len(closes)-1]+2)
			} else {
				closes = append(closes, closes[len(closes)-1]-1)
			}
		}
		got := RSI(closes, 14)
		require.NotNil(t, got)
		assert.Greater(t, *got, 50.0)
		assert.Less(t, *got, 80.0)
	})
}

func TestDetectCrossover(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   dto.Crossover
	}{
		{
			name:   "short crosses above long",
			closes: []float64{10, 10, 10, 10, 9, 20},
			want:   dto.CrossoverGolden,
		},
		{
			name:   "short crosses below long",
			closes: []float64{10, 10, 10, 10, 11, 1},
			want:   dto.CrossoverDeath,
		},
		{
			name:   "steady uptrend has no cross",
			closes: linear(6, 10, 1),
			want:   dto.CrossoverNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectCrossover(tt.closes, 2, 4)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := DetectCrossover(linear(4, 10, 1), 2, 4)
	assert.False(t, ok)
}

func TestComputeMACD(t *testing.T) {
	closes := linear(40, 100, 1)
	m := ComputeMACD(closes, 12, 26, 9)
	require.NotNil(t, m)
	require.NotNil(t, m.Signal)
	require.NotNil(t, m.Histogram)

	// a constant slope converges to fast and slow EMAs lagging by (period-1)/2
	assert.InDelta(t, 7.0, m.Line, 0.5)
	assert.InDelta(t, m.Line-*m.Signal, *m.Histogram, 1e-9)

	assert.Nil(t, ComputeMACD(linear(25, 100, 1), 12, 26, 9))
}

func TestEMASeries(t *testing.T) {
	got := EMASeries([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 3)
	assert.InDelta(t, 2.0, got[0], 1e-9)
	assert.InDelta(t, 3.0, got[1], 1e-9)
	assert.InDelta(t, 4.0, got[2], 1e-9)
}

func TestVolumeZScore(t *testing.T) {
	t.Run("spike is flagged", func(t *testing.T) {
		vols := make([]float64, 21)
		closes := make([]float64, 21)
		for i := 0; i < 20; i++ {
			vols[i] = 1000 + float64(i%2)*100
			closes[i] = 100
		}
		vols[20] = 5000
		closes[20] = 100

		s := Compute(makeHistory(closes, vols), DefaultParams())
		require.NotNil(t, s.VolumeZScore)
		assert.Greater(t, *s.VolumeZScore, 2.0)
		assert.True(t, s.VolumeAnomaly)
	})

	t.Run("zero variance is omitted", func(t *testing.T) {
		vols := make([]float64, 25)
		for i := range vols {
			vols[i] = 1000
		}
		assert.Nil(t, VolumeZScore(vols, 20))
	})

	t.Run("short window is omitted", func(t *testing.T) {
		assert.Nil(t, VolumeZScore([]float64{1, 2, 3}, 20))
	})
}

func TestNewPriceHistoryNormalizes(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC) }
	h := dto.NewPriceHistory("FPT", []dto.Bar{
		{Date: d(3), Close: 3},
		{Date: d(1), Close: 1},
		{Date: d(2), Close: 2},
		{Date: d(2).Add(5 * time.Hour), Close: 2.5},
	})
	assert.Equal(t, []float64{1, 2.5, 3}, h.Closes())
}
