// Package format holds small display helpers for status lines.
package format

import "fmt"

// HumanizeBytes renders a size for the result line ("12.4 MB"). Counts
// below 1 KiB stay integral; everything above gets one decimal.
func HumanizeBytes(n int64) string {
	const step = 1024
	if n < step {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n)
	for _, unit := range []string{"KB", "MB", "GB", "TB", "PB"} {
		v /= step
		if v < step {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
	}
	return fmt.Sprintf("%.1f EB", v/step)
}
