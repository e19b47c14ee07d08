package service

import (
	"testing"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestDecisionTable(t *testing.T) {
	table := NewDecisionTable(testConfig())

	tests := []struct {
		name           string
		price          float64
		ind            dto.IndicatorSet
		wantAction     dto.Action
		wantConfidence float64
		wantBreached   bool
	}{
		{name: "below stop", price: 105000, wantAction: dto.ActionReduce, wantConfidence: 1.0, wantBreached: true},
		{name: "exactly at stop", price: 106480, wantAction: dto.ActionReduce, wantConfidence: 1.0, wantBreached: true},
		{name: "stop wins over overbought", price: 100000, ind: dto.IndicatorSet{RSI14: utils.ToPointer(85.0)}, wantAction: dto.ActionReduce, wantConfidence: 1.0, wantBreached: true},
		{name: "target reached", price: 146000, ind: dto.IndicatorSet{RSI14: utils.ToPointer(85.0)}, wantAction: dto.ActionTakeProfit, wantConfidence: 0.6},
		{name: "rsi at trim level", price: 130000, ind: dto.IndicatorSet{RSI14: utils.ToPointer(80.0)}, wantAction: dto.ActionTrim, wantConfidence: 0.55},
		{name: "golden cross below overbought", price: 130000, ind: dto.IndicatorSet{RSI14: utils.ToPointer(60.0), Crossover: dto.CrossoverGolden}, wantAction: dto.ActionAddSmall, wantConfidence: 0.5},
		{name: "golden cross but overbought", price: 130000, ind: dto.IndicatorSet{RSI14: utils.ToPointer(75.0), Crossover: dto.CrossoverGolden}, wantAction: dto.ActionHold, wantConfidence: 0.4},
		{name: "golden cross without rsi", price: 130000, ind: dto.IndicatorSet{Crossover: dto.CrossoverGolden}, wantAction: dto.ActionHold, wantConfidence: 0.4},
		{name: "no signal", price: 130000, wantAction: dto.ActionHold, wantConfidence: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := table.Decide(fptPosition(), tt.price, tt.ind)
			assert.Equal(t, tt.wantAction, d.Action)
			assert.Equal(t, tt.wantConfidence, d.Confidence)
			assert.Equal(t, tt.wantBreached, d.StopLossBreached)
			assert.InDelta(t, 106480, d.StopLossPrice, 0.001)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestDecisionTableDefaultDrawdown(t *testing.T) {
	position := fptPosition()
	position.MaxDrawdownPct = nil

	d := NewDecisionTable(testConfig()).Decide(position, 103000, dto.IndicatorSet{})
	assert.InDelta(t, 102850, d.StopLossPrice, 0.001)
	assert.False(t, d.StopLossBreached)
	assert.Equal(t, dto.ActionHold, d.Action)
}

func TestEscalate(t *testing.T) {
	for _, suggested := range dto.Actions {
		for _, override := range dto.Actions {
			got, escalated := Escalate(suggested, override)
			assert.GreaterOrEqual(t, got.Severity(), suggested.Severity(), "%s/%s", suggested, override)
			assert.GreaterOrEqual(t, got.Severity(), override.Severity(), "%s/%s", suggested, override)
			assert.Equal(t, override.Severity() > suggested.Severity(), escalated, "%s/%s", suggested, override)
		}
	}

	got, escalated := Escalate(dto.ActionExit, dto.ActionReduce)
	assert.Equal(t, dto.ActionExit, got)
	assert.False(t, escalated)

	got, escalated = Escalate(dto.ActionHold, dto.ActionReduce)
	assert.Equal(t, dto.ActionReduce, got)
	assert.True(t, escalated)
}

func TestSeverityScoreOrdersByCategory(t *testing.T) {
	assert.Greater(t, SeverityScore(dto.ActionReduce, 0.1), SeverityScore(dto.ActionTakeProfit, 1.0))
	assert.Greater(t, SeverityScore(dto.ActionTrim, 0.9), SeverityScore(dto.ActionTrim, 0.6))
}
