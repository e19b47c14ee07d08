package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/pkg/utils"
)

// MaxMessageLength keeps each part under Telegram's 4096 character limit.
const MaxMessageLength = 4090

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// FormatAdvisoryForTelegram formats an advisory into one or more Markdown
// messages, each at most MaxMessageLength long.
func FormatAdvisoryForTelegram(advisory *dto.PortfolioAdvisory) []string {
	if advisory == nil || len(advisory.Recommendations) == 0 {
		return []string{"Không có khuyến nghị nào cho hôm nay."}
	}

	blocks := []string{summaryBlock(advisory)}
	if advisory.NarrativeAvailable {
		blocks = append(blocks, narrativeBlock(advisory))
	}
	if len(advisory.Priorities) > 0 {
		blocks = append(blocks, priorityBlock(advisory.Priorities))
	}
	for _, rec := range advisory.Recommendations {
		blocks = append(blocks, recommendationBlock(rec))
	}
	if len(advisory.Metrics.RiskAlerts) > 0 {
		var b strings.Builder
		b.WriteString("🚨 *Risk alerts*\n")
		for _, alert := range advisory.Metrics.RiskAlerts {
			fmt.Fprintf(&b, "  - %s\n", escape(alert))
		}
		blocks = append(blocks, b.String())
	}

	date := advisory.RunAt.In(utils.MarketLocation()).Format("02/01/2006")
	return splitMessages(blocks, func(part int) string {
		if part == 1 {
			return fmt.Sprintf("📊 *Daily Portfolio Advisory %s* 📊\n\n", date)
		}
		return fmt.Sprintf("--- *Advisory %s, part %d* ---\n\n", date, part)
	}, MaxMessageLength)
}

func summaryBlock(a *dto.PortfolioAdvisory) string {
	m := a.Metrics
	var b strings.Builder
	fmt.Fprintf(&b, "💰 *Invested:* %s VND\n", utils.FormatThousands(m.TotalInvested))
	fmt.Fprintf(&b, "💼 *Value:* %s VND\n", utils.FormatThousands(m.TotalCurrent))
	fmt.Fprintf(&b, "%s *P/L:* %s VND (%+.2f%%)\n", plIcon(m.UnrealizedPL), utils.FormatThousands(m.UnrealizedPL), m.UnrealizedPLPct)
	if m.MaxConcentrationTicker != "" {
		fmt.Fprintf(&b, "⚖️ *Largest position:* %s %.1f%%\n", m.MaxConcentrationTicker, m.MaxConcentration*100)
	}
	if len(m.TopGainers) > 0 {
		fmt.Fprintf(&b, "🟢 *Top gainers:* %s\n", strings.Join(m.TopGainers, ", "))
	}
	if len(m.TopLosers) > 0 {
		fmt.Fprintf(&b, "🔴 *Top losers:* %s\n", strings.Join(m.TopLosers, ", "))
	}
	if a.DegradedCount > 0 {
		fmt.Fprintf(&b, "⚠️ *Degraded:* %d of %d positions without AI input\n", a.DegradedCount, len(a.Recommendations))
	}
	b.WriteString("\n")
	return b.String()
}

func narrativeBlock(a *dto.PortfolioAdvisory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 *Overview* (risk %d/10)\n_%s_\n", a.RiskScore, escape(a.Narrative))
	for _, todo := range a.AITodos {
		fmt.Fprintf(&b, "  - %s\n", escape(todo))
	}
	b.WriteString("\n")
	return b.String()
}

func priorityBlock(priorities []dto.PriorityAction) string {
	var b strings.Builder
	b.WriteString("🎯 *Priority actions*\n")
	for _, p := range priorities {
		fmt.Fprintf(&b, "%d. %s %s: *%s* (%.0f%%)\n", p.Rank, actionIcon(p.Action), p.Ticker, actionLabel(p.Action), p.Confidence*100)
	}
	b.WriteString("\n")
	return b.String()
}

func recommendationBlock(rec dto.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 *- - - - - %s (%s) - - - - -*\n", rec.Ticker, rec.Exchange)
	if rec.InsufficientData {
		b.WriteString("❔ *Insufficient data*, holding\n")
	} else {
		fmt.Fprintf(&b, "%s *Action:* %s (%.0f%%)\n", actionIcon(rec.Action), actionLabel(rec.Action), rec.Confidence*100)
	}
	if rec.Quote != nil {
		fmt.Fprintf(&b, "💵 *Price:* %s (%s)\n", utils.FormatThousands(rec.Quote.Price), escape(string(rec.Quote.Confidence)))
	}
	if rec.Degraded && !rec.InsufficientData {
		b.WriteString("⚠️ _Indicator-only, AI unavailable_\n")
	}
	if rec.AIStatus == dto.AIStatusOverridden {
		b.WriteString("🛑 _Stop-loss override applied_\n")
	}
	fmt.Fprintf(&b, "💬 %s\n", escape(utils.Truncate(rec.Rationale, 400)))
	if len(rec.KeySignals) > 0 {
		fmt.Fprintf(&b, "🔑 %s\n", escape(strings.Join(rec.KeySignals, "; ")))
	}
	for _, note := range rec.RiskNotes {
		fmt.Fprintf(&b, "  - %s\n", escape(utils.Truncate(note, 200)))
	}
	b.WriteString("\n")
	return b.String()
}

// splitMessages packs blocks into parts no longer than maxLen. A block longer
// than maxLen on its own is cut.
func splitMessages(blocks []string, header func(part int) string, maxLen int) []string {
	var messages []string
	var current strings.Builder
	part := 1
	current.WriteString(header(part))
	bodyLen := 0

	for _, block := range blocks {
		if bodyLen > 0 && len(current.String())+len(block) > maxLen {
			messages = append(messages, current.String())
			part++
			current.Reset()
			current.WriteString(header(part))
			bodyLen = 0
		}
		if room := maxLen - current.Len(); len(block) > room {
			block = cutUTF8(block, room)
		}
		current.WriteString(block)
		bodyLen += len(block)
	}
	messages = append(messages, current.String())
	return messages
}

func cutUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func actionLabel(a dto.Action) string {
	return escape(strings.ToUpper(string(a)))
}

func actionIcon(a dto.Action) string {
	switch a {
	case dto.ActionExit, dto.ActionReduce:
		return "🔴"
	case dto.ActionTakeProfit, dto.ActionTrim:
		return "🟠"
	case dto.ActionAdd, dto.ActionAddSmall:
		return "🟢"
	default:
		return "🟡"
	}
}

func plIcon(pl float64) string {
	if pl < 0 {
		return "📉"
	}
	return "📈"
}
