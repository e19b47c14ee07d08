// Package indicator computes technical signals from a daily price history.
//
// Every function is pure: the same history always yields the same
// IndicatorSet, and a history too short for an indicator leaves that field
// nil instead of failing.
package indicator

import (
	"math"

	"golang-stock-advisor/internal/advisor/dto"
)

// Params configures the indicator windows.
type Params struct {
	SMAShort              int
	SMALong               int
	RSIPeriod             int
	MACDFast              int
	MACDSlow              int
	MACDSignal            int
	VolumeWindow          int
	VolumeZScoreThreshold float64
}

// DefaultParams returns SMA 20/50, RSI 14, MACD 12/26/9 and a 20 day volume window.
func DefaultParams() Params {
	return Params{
		SMAShort:              20,
		SMALong:               50,
		RSIPeriod:             14,
		MACDFast:              12,
		MACDSlow:              26,
		MACDSignal:            9,
		VolumeWindow:          20,
		VolumeZScoreThreshold: 2.0,
	}
}

// Compute derives the IndicatorSet for history.
func Compute(history dto.PriceHistory, p Params) dto.IndicatorSet {
	var set dto.IndicatorSet
	closes := history.Closes()
	if len(closes) < 2 {
		return set
	}

	set.SMAShort = SMA(closes, p.SMAShort)
	set.SMALong = SMA(closes, p.SMALong)
	if c, ok := DetectCrossover(closes, p.SMAShort, p.SMALong); ok {
		set.Crossover = c
	}

	set.RSI14 = RSI(closes, p.RSIPeriod)

	if m := ComputeMACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); m != nil {
		set.MACD = &m.Line
		set.MACDSignal = m.Signal
		set.MACDHistogram = m.Histogram
	}

	if z := VolumeZScore(history.Volumes(), p.VolumeWindow); z != nil {
		set.VolumeZScore = z
		set.VolumeAnomaly = math.Abs(*z) > p.VolumeZScoreThreshold
	}

	return set
}

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) *float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	v := mean(values[len(values)-period:])
	return &v
}

// DetectCrossover compares the short/long SMA spread on the previous and
// latest bar. It needs long+1 values.
func DetectCrossover(closes []float64, short, long int) (dto.Crossover, bool) {
	if short <= 0 || long <= 0 || len(closes) < long+1 {
		return "", false
	}
	prev := closes[:len(closes)-1]
	prevSpread := *SMA(prev, short) - *SMA(prev, long)
	currSpread := *SMA(closes, short) - *SMA(closes, long)

	switch {
	case prevSpread <= 0 && currSpread > 0:
		return dto.CrossoverGolden, true
	case prevSpread >= 0 && currSpread < 0:
		return dto.CrossoverDeath, true
	default:
		return dto.CrossoverNone, true
	}
}

// RSI computes the relative strength index with Wilder smoothing. It needs
// period+1 closes. A flat series is neutral (50); a series with gains and no
// losses is 100.
func RSI(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	var rsi float64
	switch {
	case avgGain == 0 && avgLoss == 0:
		rsi = 50
	case avgLoss == 0:
		rsi = 100
	default:
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}
	return &rsi
}

// MACD is the latest MACD reading. Signal and Histogram are nil until
// slow+signal-1 closes are available.
type MACD struct {
	Line      float64
	Signal    *float64
	Histogram *float64
}

// ComputeMACD returns fast EMA - slow EMA, its signal EMA and the histogram.
func ComputeMACD(closes []float64, fast, slow, signal int) *MACD {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow {
		return nil
	}

	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	// both series are aligned to the end of closes
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	out := &MACD{Line: line[len(line)-1]}
	signalSeries := EMASeries(line, signal)
	if len(signalSeries) > 0 {
		s := signalSeries[len(signalSeries)-1]
		h := out.Line - s
		out.Signal = &s
		out.Histogram = &h
	}
	return out
}

// EMASeries returns the exponential moving average seeded with the SMA of the
// first period values. The result has len(values)-period+1 entries, the first
// aligned with values[period-1].
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	ema := mean(values[:period])
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// VolumeZScore scores the latest volume against the window volumes before
// it. Nil when there are fewer than window+1 values or the window has no variance.
func VolumeZScore(volumes []float64, window int) *float64 {
	if window <= 1 || len(volumes) < window+1 {
		return nil
	}
	latest := volumes[len(volumes)-1]
	trailing := volumes[len(volumes)-1-window : len(volumes)-1]

	m := mean(trailing)
	var sq float64
	for _, v := range trailing {
		sq += (v - m) * (v - m)
	}
	sd := math.Sqrt(sq / float64(len(trailing)))
	if sd == 0 {
		return nil
	}
	z := (latest - m) / sd
	return &z
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
