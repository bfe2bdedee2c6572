package entity

// RawSlideEvent is one slide transition as reported by the model. Seconds is
// a pointer because the model does not always populate it; the timestamp
// string is the fallback source of truth.
type RawSlideEvent struct {
	Timestamp  string   `json:"timestamp"`
	Seconds    *float64 `json:"seconds"`
	PageNumber int      `json:"pdfPageNumber"`
	SlideTitle string   `json:"slideTitle"`
	Reasoning  string   `json:"reasoning"`
}

// SlideEvent is a transition after correction: Seconds is always concrete
// and seekable, Timestamp is re-derived from it, and Reasoning discloses the
// midpoint adjustment when sampling occurred.
type SlideEvent struct {
	Timestamp  string  `json:"timestamp"`
	Seconds    float64 `json:"seconds"`
	PageNumber int     `json:"pdfPageNumber"`
	SlideTitle string  `json:"slideTitle"`
	Reasoning  string  `json:"reasoning"`
}
