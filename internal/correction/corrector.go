// Package correction removes the structural bias that discrete sampling
// introduces into model-reported slide-change times. A transition detected
// "at" a sampled frame actually happened somewhere in the interval ending at
// that frame, on average half an interval earlier.
package correction

import (
	"math"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/pkg/timecode"
)

// correctionNote is appended to each event's reasoning once the midpoint
// shift has been applied.
const correctionNote = " (Timestamp automatically adjusted backward by half the sampling interval to estimate the true transition point.)"

// Apply maps raw model events to corrected ones. interval is the sampling
// interval in seconds, or 0 when the video was submitted inline; correction
// only happens for sampled video, since a model that saw the continuous
// stream carries no sampling bias. Events are never reordered or dropped; an
// event whose seconds and timestamp are both unusable is repaired to 0 rather
// than failing the batch. The second return value is the repair count.
func Apply(raw []entity.RawSlideEvent, interval int) ([]entity.SlideEvent, int) {
	events := make([]entity.SlideEvent, 0, len(raw))
	repaired := 0

	for i, event := range raw {
		resolved, err := resolveSeconds(i, event)
		if err != nil {
			repaired++
			resolved = 0
		}

		seconds := math.Max(0, resolved)
		reasoning := event.Reasoning
		if interval > 0 {
			seconds = math.Max(0, resolved-float64(interval)/2)
			reasoning += correctionNote
		}

		events = append(events, entity.SlideEvent{
			Timestamp:  timecode.Format(seconds),
			Seconds:    seconds,
			PageNumber: event.PageNumber,
			SlideTitle: event.SlideTitle,
			Reasoning:  reasoning,
		})
	}

	return events, repaired
}

// resolveSeconds picks the numeric instant for one raw event: the seconds
// field when it is present and finite, otherwise the parsed timestamp.
func resolveSeconds(index int, event entity.RawSlideEvent) (float64, error) {
	if event.Seconds != nil && !math.IsNaN(*event.Seconds) && !math.IsInf(*event.Seconds, 0) {
		return *event.Seconds, nil
	}
	if parsed, err := timecode.Parse(event.Timestamp); err == nil {
		return parsed, nil
	}
	return 0, &entity.MalformedEventError{Index: index, Timestamp: event.Timestamp}
}
