// Package timecode formats and parses the MM:SS labels used to mark
// sampled video frames and model-reported slide transitions.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format renders seconds as a zero-padded MM:SS label. Minutes and the
// remaining seconds are floored; sub-second precision is not claimed.
// Negative input renders as 00:00.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Parse reads an MM:SS label back into seconds. An H:MM:SS label is
// accepted too, since models occasionally emit hours for long recordings.
func Parse(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")

	var hours, minutes, seconds float64
	var err error

	switch len(parts) {
	case 2:
		if minutes, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		if seconds, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
	case 3:
		if hours, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		if minutes, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		if seconds, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
	default:
		return 0, fmt.Errorf("invalid timecode %q", s)
	}

	total := hours*3600 + minutes*60 + seconds
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	return total, nil
}
