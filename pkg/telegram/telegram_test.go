package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-stock-advisor/internal/advisor/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAdvisory(n int) *dto.PortfolioAdvisory {
	a := &dto.PortfolioAdvisory{
		RunAt:              time.Date(2024, 5, 2, 7, 30, 0, 0, time.UTC),
		Narrative:          "Portfolio is tilted to technology",
		NarrativeAvailable: true,
		RiskScore:          6,
		Metrics: dto.PortfolioMetrics{
			TotalInvested:   121_000_000,
			TotalCurrent:    105_000_000,
			UnrealizedPL:    -16_000_000,
			UnrealizedPLPct: -13.22,
			RiskAlerts:      []string{"FPT breached its stop-loss"},
		},
		Priorities: []dto.PriorityAction{{Rank: 1, Ticker: "FPT", Action: dto.ActionReduce, Confidence: 1}},
	}
	for i := 0; i < n; i++ {
		a.Recommendations = append(a.Recommendations, dto.Recommendation{
			Ticker:     "FPT",
			Exchange:   "HOSE",
			Action:     dto.ActionTakeProfit,
			Confidence: 0.7,
			Rationale:  strings.Repeat("price_near_target ", 10),
			Quote:      &dto.PriceQuote{Price: 105000, Confidence: dto.ConfidenceMeasured},
		})
	}
	return a
}

func TestFormatAdvisoryForTelegram(t *testing.T) {
	t.Run("empty advisory", func(t *testing.T) {
		msgs := FormatAdvisoryForTelegram(&dto.PortfolioAdvisory{})
		assert.Len(t, msgs, 1)
	})

	t.Run("single part escapes markdown", func(t *testing.T) {
		msgs := FormatAdvisoryForTelegram(sampleAdvisory(1))
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "Daily Portfolio Advisory 02/05/2024")
		assert.Contains(t, msgs[0], "121,000,000 VND")
		assert.Contains(t, msgs[0], `TAKE\_PROFIT`)
		assert.Contains(t, msgs[0], `price\_near\_target`)
		assert.Contains(t, msgs[0], "risk 6/10")
	})

	t.Run("long advisory is split", func(t *testing.T) {
		msgs := FormatAdvisoryForTelegram(sampleAdvisory(40))
		require.Greater(t, len(msgs), 1)
		for _, m := range msgs {
			assert.LessOrEqual(t, len(m), MaxMessageLength)
		}
		assert.Contains(t, msgs[1], "part 2")
	})
}

func TestSplitMessagesCutsOversizedBlock(t *testing.T) {
	msgs := splitMessages([]string{strings.Repeat("é", 100)}, func(int) string { return "H\n" }, 51)
	require.Len(t, msgs, 1)
	assert.LessOrEqual(t, len(msgs[0]), 51)
	assert.True(t, strings.HasPrefix(msgs[0], "H\n"))
}

func TestClientSendMessage(t *testing.T) {
	var sent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"advisor","username":"advisor_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "42", r.FormValue("chat_id"))
			sent = r.FormValue("text")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	notifier, err := NewClientWithEndpoint("token", 42, srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	require.NoError(t, notifier.SendMessage(context.Background(), "hello"))
	assert.Equal(t, "hello", sent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, notifier.SendMessage(ctx, "late"))
}
