package entity

// Part is one element of the ordered multimodal payload. Ordering is
// semantically load-bearing: position is the only channel telling the model
// which marker labels which image, so the payload is never permuted after
// assembly. The union is closed; consumers switch over both kinds and
// reject anything else.
type Part interface {
	isPart()
}

// TextPart labels the media part that follows it (a timestamp or page
// marker) or carries the trailing task instruction.
type TextPart struct {
	Text string
}

// BlobPart carries encoded media bytes: a sampled frame, a rasterized page,
// or a whole file submitted inline when it fits under the size threshold.
type BlobPart struct {
	MIMEType string
	Data     []byte
}

func (TextPart) isPart() {}
func (BlobPart) isPart() {}

// FramePart is one sampled instant of the video timeline: the capture time
// in both label and numeric form, plus the downscaled JPEG taken there.
// Created during extraction, immutable, consumed once by the assembler.
type FramePart struct {
	Timestamp string // zero-padded MM:SS at capture
	Seconds   int    // floored seconds at capture
	Image     []byte
	MIMEType  string
}

// PagePart is one rasterized page of the slide deck.
type PagePart struct {
	PageNumber int // 1-based
	Image      []byte
	MIMEType   string
}
