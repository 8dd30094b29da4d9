package utils

import (
	"fmt"
	"time"
)

// FormatDuration renders an interview length the way reports show it:
// "42 seconds", "3 minutes 5 seconds" or "1 hours 12 minutes".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%d hours %d minutes", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%d minutes %d seconds", minutes, seconds)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}

// FormatElapsed renders a running timer as MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
