package dto

// Crossover is the SMA short/long crossover state.
type Crossover string

const (
	CrossoverGolden Crossover = "golden"
	CrossoverDeath  Crossover = "death"
	CrossoverNone   Crossover = "none"
)

// IndicatorSet holds derived technical signals. Nil fields were not computable.
type IndicatorSet struct {
	RSI14         *float64  `json:"rsi14,omitempty"`
	MACD          *float64  `json:"macd,omitempty"`
	MACDSignal    *float64  `json:"macd_signal,omitempty"`
	MACDHistogram *float64  `json:"macd_histogram,omitempty"`
	SMAShort      *float64  `json:"sma_short,omitempty"`
	SMALong       *float64  `json:"sma_long,omitempty"`
	Crossover     Crossover `json:"crossover,omitempty"`
	VolumeZScore  *float64  `json:"volume_zscore,omitempty"`
	VolumeAnomaly bool      `json:"volume_anomaly,omitempty"`
}

// Empty reports whether no indicator could be computed.
func (s IndicatorSet) Empty() bool {
	return s.RSI14 == nil && s.MACD == nil && s.SMAShort == nil && s.SMALong == nil &&
		s.Crossover == "" && s.VolumeZScore == nil
}
