package repository

import (
	"encoding/json"
	"fmt"

	"golang-stock-advisor/internal/advisor/dto"
)

// BuildStockAdvicePrompt renders the per-stock prompt.
func BuildStockAdvicePrompt(stock dto.StockContext) string {
	data, _ := json.MarshalIndent(stock, "", "  ")

	return fmt.Sprintf(`You are a disciplined Vietnam-equities strategist. Give concise, actionable guidance with risk controls. No hype. Cite the signals you used.

Position and market data (prices in VND, indicators computed from daily closes; missing indicators had too little history):
%s

Rules:
- "action" must be exactly one of: hold, add_small, add, trim, take_profit, reduce, exit.
- Only use "reduce" or "exit" when you see a clear high-severity risk and name it in "risk_notes".
- "confidence" is a number between 0.0 and 1.0.
- If price_confidence is not "measured", treat the price as approximate and lower your confidence.

Respond with JSON only, using this structure:
{
  "action": "hold | add_small | add | trim | take_profit | reduce | exit",
  "confidence": <float 0.0-1.0>,
  "rationale": "<brief explanation>",
  "key_signals": ["<signal>", "<signal>"],
  "risk_notes": "<risk assessment>",
  "levels": {"add_zone": [<low>, <high>], "take_profit_zone": [<low>, <high>], "hard_stop": <price>},
  "next_checks": ["<condition to re-check>"]
}`, string(data))
}

// BuildPortfolioPrompt renders the portfolio narrative prompt from a digest.
func BuildPortfolioPrompt(digest dto.PortfolioDigest) string {
	data, _ := json.MarshalIndent(digest, "", "  ")

	return fmt.Sprintf(`You are a Vietnam portfolio manager. Review the portfolio digest below and write a short overview.
Focus on total P/L, concentration risks, sector balance and the most urgent actions. The per-position actions were already decided; do not contradict a "reduce" or "exit".

Portfolio digest (values in VND, weights and P/L in percent):
%s

Respond with JSON only, using this structure:
{
  "narrative": "<3-5 sentence overview>",
  "risk_score": <integer 1-10, 10 is highest risk>,
  "risk_alerts": ["<alert>"],
  "priority_todos": ["<todo>", "<todo>", "<todo>"]
}`, string(data))
}

// BuildPriceEstimatePrompt renders the last-resort price estimate prompt.
func BuildPriceEstimatePrompt(position dto.Position, date string) string {
	return fmt.Sprintf(`Estimate the most recent closing price in VND of the stock %s listed on %s as of %s.
Use your most recent knowledge. If unsure, give your best estimate and say so in the rationale.

Respond with JSON only, using this structure:
{
  "price": <number, VND per share>,
  "rationale": "<how the estimate was derived>"
}`, position.Ticker, position.Exchange, date)
}
