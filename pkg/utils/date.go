package utils

import (
	"time"
)

// MarketTimezone is the exchange timezone for HOSE, HNX and UPCoM.
const MarketTimezone = "Asia/Ho_Chi_Minh"

var marketLocation = loadMarketLocation()

func loadMarketLocation() *time.Location {
	loc, err := time.LoadLocation(MarketTimezone)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// MarketLocation returns the Vietnam market location.
func MarketLocation() *time.Location {
	return marketLocation
}

// TimeNowICT returns the current time in the Vietnam market timezone.
func TimeNowICT() time.Time {
	return time.Now().In(marketLocation)
}

// TruncateDay returns midnight of t in the market timezone.
func TruncateDay(t time.Time) time.Time {
	t = t.In(marketLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, marketLocation)
}
