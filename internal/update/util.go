package update

import "fmt"

func formatDuration(totalSec int) string {
	if totalSec < 0 {
		totalSec = 0
	}
	min := totalSec / 60
	sec := totalSec % 60
	return fmt.Sprintf("%02d:%02d", min, sec)
}

// shortID is the id prefix shown in the list and accepted by commands.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
