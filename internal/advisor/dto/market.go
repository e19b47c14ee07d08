package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SSIChartResponse is the iBoard chart history payload.
type SSIChartResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Data    []SSIChartBar `json:"data"`
}

// SSIChartBar is one daily OHLCV entry.
type SSIChartBar struct {
	Date   FlexTime  `json:"date"`
	Open   FlexFloat `json:"open"`
	High   FlexFloat `json:"high"`
	Low    FlexFloat `json:"low"`
	Close  FlexFloat `json:"close"`
	Volume FlexFloat `json:"volume"`
}

// FlexFloat accepts a JSON number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexTime accepts unix seconds or a date string.
type FlexTime struct {
	time.Time
}

var flexTimeLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "02/01/2006"}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		var sec int64
		if err := json.Unmarshal(b, &sec); err != nil {
			return fmt.Errorf("invalid unix time %s: %w", string(b), err)
		}
		t.Time = time.Unix(sec, 0).UTC()
		return nil
	}
	s := strings.Trim(string(b), `"`)
	for _, layout := range flexTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("unsupported date format %q", s)
}
