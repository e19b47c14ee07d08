// Package render turns a portfolio advisory into e-mail documents.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/pkg/utils"
)

var funcs = template.FuncMap{
	"vnd":     utils.FormatThousands,
	"pct":     func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"weight":  func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"conf":    func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"upper":   func(a dto.Action) string { return strings.ToUpper(strings.ReplaceAll(string(a), "_", " ")) },
	"date":    func(a *dto.PortfolioAdvisory) string { return a.RunAt.In(utils.MarketLocation()).Format("02/01/2006 15:04") },
	"joinAll": func(s []string) string { return strings.Join(s, "; ") },
	"plClass": func(v float64) string {
		if v < 0 {
			return "neg"
		}
		return "pos"
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Portfolio advisory {{date .}}</title>
<style>
body { font-family: -apple-system, Segoe UI, Roboto, sans-serif; color: #222; max-width: 900px; margin: 0 auto; padding: 16px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 16px; }
th, td { border-bottom: 1px solid #ddd; padding: 6px 8px; text-align: left; font-size: 14px; }
th { background: #f4f4f4; }
.pos { color: #1b7f3b; } .neg { color: #c0392b; }
.degraded { background: #fff8e1; } .muted { color: #777; font-size: 12px; }
</style>
</head>
<body>
<h1>Portfolio advisory</h1>
<p class="muted">Run {{.RunID}} at {{date .}}</p>

<h2>Summary</h2>
<table>
<tr><th>Invested</th><td>{{vnd .Metrics.TotalInvested}} {{.Currency}}</td></tr>
<tr><th>Current value</th><td>{{vnd .Metrics.TotalCurrent}} {{.Currency}}</td></tr>
<tr><th>Unrealized P/L</th><td class="{{plClass .Metrics.UnrealizedPL}}">{{vnd .Metrics.UnrealizedPL}} ({{pct .Metrics.UnrealizedPLPct}})</td></tr>
{{- if .Metrics.MaxConcentrationTicker}}
<tr><th>Largest position</th><td>{{.Metrics.MaxConcentrationTicker}} {{weight .Metrics.MaxConcentration}}{{if .Metrics.ConcentrationFlagged}} (above limit){{end}}</td></tr>
{{- end}}
{{- if .DegradedCount}}
<tr><th>Degraded</th><td>{{.DegradedCount}} position(s) without AI input</td></tr>
{{- end}}
</table>

{{- if .NarrativeAvailable}}
<h2>Overview <span class="muted">risk {{.RiskScore}}/10</span></h2>
<p>{{.Narrative}}</p>
{{- if .AITodos}}
<ul>{{range .AITodos}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
{{- else}}
<p class="muted">Portfolio narrative unavailable for this run.</p>
{{- end}}

{{- if .Priorities}}
<h2>Priority actions</h2>
<ol>{{range .Priorities}}<li><b>{{.Ticker}}</b> {{upper .Action}} ({{conf .Confidence}}): {{.Rationale}}</li>{{end}}</ol>
{{- end}}

<h2>Positions</h2>
<table>
<tr><th>Ticker</th><th>Action</th><th>Confidence</th><th>Price</th><th>Source</th><th>Rationale</th></tr>
{{- range .Recommendations}}
<tr{{if .Degraded}} class="degraded"{{end}}>
<td><b>{{.Ticker}}</b><br><span class="muted">{{.Exchange}} {{.Sector}}</span></td>
<td>{{if .InsufficientData}}INSUFFICIENT DATA{{else}}{{upper .Action}}{{end}}</td>
<td>{{conf .Confidence}}</td>
<td>{{if .Quote}}{{vnd .Quote.Price}}{{else}}n/a{{end}}</td>
<td>{{if .Quote}}{{.Quote.Source}} ({{.Quote.Confidence}}){{else}}none{{end}}<br><span class="muted">AI {{.AIStatus}}</span></td>
<td>{{.Rationale}}{{if .RiskNotes}}<br><span class="muted">{{joinAll .RiskNotes}}</span>{{end}}</td>
</tr>
{{- end}}
</table>

{{- if .Metrics.Sectors}}
<h2>Sectors</h2>
<table>
<tr><th>Sector</th><th>Weight</th></tr>
{{- range .Metrics.Sectors}}
<tr><td>{{.Sector}}</td><td>{{weight .Weight}}{{if .Flagged}} (above limit){{end}}</td></tr>
{{- end}}
</table>
{{- end}}

{{- if .Metrics.RiskAlerts}}
<h2>Risk alerts</h2>
<ul>{{range .Metrics.RiskAlerts}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
<p class="muted">For information only. Not an order or a solicitation.</p>
</body>
</html>
`))

// HTML renders the e-mail body.
func HTML(advisory *dto.PortfolioAdvisory) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, advisory); err != nil {
		return "", fmt.Errorf("failed to execute report template: %w", err)
	}
	return buf.String(), nil
}

// Subject is the e-mail subject line.
func Subject(advisory *dto.PortfolioAdvisory) string {
	subject := fmt.Sprintf("Portfolio advisory %s", advisory.RunAt.In(utils.MarketLocation()).Format("02/01/2006"))
	if n := len(advisory.Priorities); n > 0 {
		subject += fmt.Sprintf(" (%d priority actions)", n)
	}
	return subject
}

// Text renders a plain-text fallback.
func Text(advisory *dto.PortfolioAdvisory) string {
	var b strings.Builder
	m := advisory.Metrics
	fmt.Fprintf(&b, "Portfolio advisory %s\n\n", advisory.RunAt.In(utils.MarketLocation()).Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Invested: %s %s\nValue: %s %s\nP/L: %s (%+.2f%%)\n\n",
		utils.FormatThousands(m.TotalInvested), advisory.Currency,
		utils.FormatThousands(m.TotalCurrent), advisory.Currency,
		utils.FormatThousands(m.UnrealizedPL), m.UnrealizedPLPct)
	if advisory.NarrativeAvailable {
		fmt.Fprintf(&b, "%s\n\n", advisory.Narrative)
	}
	for _, rec := range advisory.Recommendations {
		price := "n/a"
		if rec.Quote != nil {
			price = fmt.Sprintf("%s (%s)", utils.FormatThousands(rec.Quote.Price), rec.Quote.Confidence)
		}
		fmt.Fprintf(&b, "%-5s %-12s %3.0f%%  %s\n      %s\n", rec.Ticker, rec.Action, rec.Confidence*100, price, rec.Rationale)
	}
	return b.String()
}
