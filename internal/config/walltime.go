package config

import (
	"fmt"
	"time"
)

// ParseWalltime parses a batch-scheduler time limit of the form
// "D-HH:MM:SS" or "HH:MM:SS" into a duration.
func ParseWalltime(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("time_limit is required")
	}

	var days, hours, mins, secs int
	if n, err := fmt.Sscanf(s, "%d-%d:%d:%d", &days, &hours, &mins, &secs); err == nil && n == 4 {
		// fall through to validation
	} else if n, err := fmt.Sscanf(s, "%d:%d:%d", &hours, &mins, &secs); err == nil && n == 3 {
		days = 0
	} else {
		return 0, fmt.Errorf("invalid time_limit %q, want D-HH:MM:SS or HH:MM:SS", s)
	}

	if days < 0 || hours < 0 || hours > 23 || mins < 0 || mins > 59 || secs < 0 || secs > 59 {
		return 0, fmt.Errorf("invalid time_limit %q, want D-HH:MM:SS or HH:MM:SS", s)
	}

	return time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second, nil
}
