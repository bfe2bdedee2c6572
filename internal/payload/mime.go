package payload

import (
	"path/filepath"
	"strings"
)

// DeckMIMEType is the declared type for inline deck submissions.
const DeckMIMEType = "application/pdf"

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ogv":  "video/ogg",
}

// VideoMIMEType maps a file name to one of the common video container MIME
// types. Unrecognized extensions fall back to application/octet-stream so an
// inline part always carries a declared type.
func VideoMIMEType(filename string) string {
	if mimeType, ok := videoMIMETypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mimeType
	}
	return "application/octet-stream"
}
