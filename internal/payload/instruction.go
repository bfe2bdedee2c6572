package payload

import (
	"fmt"
	"strings"
)

// buildInstruction composes the task description that trails the media parts.
// The wording restates the output contract field by field because the response
// schema alone does not tell the model how to choose timestamps or page numbers.
func buildInstruction(in AssembleInput) string {
	var b strings.Builder

	b.WriteString("You are analyzing a recording of a slide presentation together with the slide deck PDF it was given from.\n\n")

	if len(in.Frames) > 0 {
		fmt.Fprintf(&b, "The video is represented by still frames sampled every %d seconds. Each frame image is immediately preceded by a text marker naming the timestamp it was captured at.\n", in.SamplingInterval)
	} else {
		b.WriteString("The video is provided as a single inline file.\n")
	}

	if len(in.Pages) > 0 {
		b.WriteString("The deck is represented by one image per PDF page, in page order. Each page image is immediately preceded by a text marker naming its 1-based page number.\n\n")
	} else {
		b.WriteString("The deck is provided as a single inline PDF file.\n\n")
	}

	b.WriteString("Determine the moment each slide first becomes visible in the video. ")
	b.WriteString("For every slide that appears, report exactly one event with these fields: ")
	b.WriteString("\"timestamp\": the time of first appearance formatted as MM:SS; ")
	b.WriteString("\"seconds\": the same instant as a number of seconds from the start of the video; ")
	b.WriteString("\"pdfPageNumber\": the 1-based page number of the matching PDF page; ")
	b.WriteString("\"slideTitle\": a short title taken from the slide content; ")
	b.WriteString("\"reasoning\": one sentence explaining how the match was made.\n")
	b.WriteString("Report events in chronological order. Skip deck pages that never appear in the video.")

	return b.String()
}
