package utils

import (
	"log"
	"time"
)

// TimeNowET returns the current time in US Eastern time. EDGAR stamps
// filings in Eastern, so date arithmetic against filedAt uses it too.
func TimeNowET() time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return time.Now().In(loc)
}
