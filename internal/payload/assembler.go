// Package payload sequences sampled media and task instructions into the
// ordered part list submitted to the inference model. Part order is the only
// channel carrying temporal and page position, so the assembler is a pure
// sequencer: it never reorders, drops or transforms content.
package payload

import (
	"errors"
	"fmt"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

// AssembleInput carries exactly one video source and one deck source.
// Sampled and inline forms are mutually exclusive per source.
type AssembleInput struct {
	Frames           []entity.FramePart
	VideoInline      []byte
	VideoMIMEType    string
	SamplingInterval int

	Pages      []entity.PagePart
	DeckInline []byte
}

// Assemble flattens the input into the ordered payload: the video block
// (marker-then-image per frame, or one inline part), then the deck block
// (marker-then-image per page, or one inline part), then a single trailing
// instruction part.
func Assemble(in AssembleInput) ([]entity.Part, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	parts := make([]entity.Part, 0, 2*len(in.Frames)+2*len(in.Pages)+3)

	if len(in.Frames) > 0 {
		for _, frame := range in.Frames {
			parts = append(parts,
				entity.TextPart{Text: fmt.Sprintf("Video frame at %s (%d seconds):", frame.Timestamp, frame.Seconds)},
				entity.BlobPart{MIMEType: frame.MIMEType, Data: frame.Image},
			)
		}
	} else {
		mimeType := in.VideoMIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		parts = append(parts, entity.BlobPart{MIMEType: mimeType, Data: in.VideoInline})
	}

	if len(in.Pages) > 0 {
		for _, page := range in.Pages {
			parts = append(parts,
				entity.TextPart{Text: fmt.Sprintf("PDF page %d:", page.PageNumber)},
				entity.BlobPart{MIMEType: page.MIMEType, Data: page.Image},
			)
		}
	} else {
		parts = append(parts, entity.BlobPart{MIMEType: DeckMIMEType, Data: in.DeckInline})
	}

	parts = append(parts, entity.TextPart{Text: buildInstruction(in)})

	return parts, nil
}

func (in AssembleInput) validate() error {
	switch {
	case len(in.Frames) > 0 && len(in.VideoInline) > 0:
		return errors.New("payload: both sampled frames and inline video provided")
	case len(in.Frames) == 0 && len(in.VideoInline) == 0:
		return errors.New("payload: no video content provided")
	case len(in.Frames) > 0 && in.SamplingInterval <= 0:
		return errors.New("payload: sampled frames without a sampling interval")
	case len(in.Pages) > 0 && len(in.DeckInline) > 0:
		return errors.New("payload: both rasterized pages and inline deck provided")
	case len(in.Pages) == 0 && len(in.DeckInline) == 0:
		return errors.New("payload: no deck content provided")
	}
	return nil
}
