package discovery

import (
	"os"
	"strings"
	"time"
)

// Today returns the pipeline's date as YYYY-MM-DD in UTC. Every deadline
// comparison and every prompt shares this value. TODAY_OVERRIDE (or the
// legacy RFP_TODAY) pins it, for deterministic tests and for replaying a
// listing as it looked on a past date.
func Today() string {
	for _, key := range []string{"TODAY_OVERRIDE", "RFP_TODAY"} {
		if t := strings.TrimSpace(os.Getenv(key)); t != "" {
			if len(t) > 10 {
				t = t[:10]
			}
			return t
		}
	}
	return time.Now().UTC().Format("2006-01-02")
}
