package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Family groups MIME types by what the assistant does with them.
type Family string

const (
	FamilyDocument Family = "document"
	FamilyImage    Family = "image"
	FamilyAudio    Family = "audio"
	FamilyVideo    Family = "video"
	FamilyOther    Family = "other"
)

const octetStream = "application/octet-stream"

var extensionMimes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".json":     "application/json",
	".xml":      "application/xml",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":      "application/vnd.ms-powerpoint",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".png":      "image/png",
	".gif":      "image/gif",
	".webp":     "image/webp",
	".heic":     "image/heic",
	".mp3":      "audio/mpeg",
	".m4a":      "audio/mp4",
	".wav":      "audio/wav",
	".mp4":      "video/mp4",
	".mov":      "video/quicktime",
}

var documentMimes = map[string]struct{}{
	"application/pdf":               {},
	"application/json":              {},
	"application/xml":               {},
	"application/rtf":               {},
	"application/msword":            {},
	"application/vnd.ms-excel":      {},
	"application/vnd.ms-powerpoint": {},
	"application/x-ole-storage":     {},
}

var documentPrefixes = []string{
	"text/",
	"application/vnd.openxmlformats-officedocument.",
	"application/vnd.oasis.opendocument.",
}

// Detect sniffs the content type of data, without parameters.
func Detect(data []byte) string {
	return baseType(mimetype.Detect(data).String())
}

// MimeFromName guesses a content type from a file name extension.
// It returns an empty string when the extension is unknown.
func MimeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if ext == "" {
		return ""
	}
	if m, ok := extensionMimes[ext]; ok {
		return m
	}
	return baseType(mime.TypeByExtension(ext))
}

// FamilyOf classifies a content type.
func FamilyOf(contentType string) Family {
	m := baseType(contentType)
	switch {
	case m == "":
		return FamilyOther
	case strings.HasPrefix(m, "image/"):
		return FamilyImage
	case strings.HasPrefix(m, "audio/"):
		return FamilyAudio
	case strings.HasPrefix(m, "video/"):
		return FamilyVideo
	}
	if _, ok := documentMimes[m]; ok {
		return FamilyDocument
	}
	for _, prefix := range documentPrefixes {
		if strings.HasPrefix(m, prefix) {
			return FamilyDocument
		}
	}
	return FamilyOther
}

// ResolveDocument decides the content type of an uploaded document from its
// bytes and file name. Sniffing wins, except when it can only say "binary" or
// "plain text" and the name is more specific (markdown, csv, legacy office).
func ResolveDocument(data []byte, name string) (string, error) {
	sniffed := Detect(data)
	byName := MimeFromName(name)
	resolved := sniffed
	if (sniffed == octetStream || sniffed == "text/plain" || sniffed == "application/x-ole-storage") &&
		FamilyOf(byName) == FamilyDocument {
		resolved = byName
	}
	if FamilyOf(resolved) != FamilyDocument {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, resolved)
	}
	return resolved, nil
}

// ResolveImage returns the sniffed image type of data.
func ResolveImage(data []byte) (string, error) {
	sniffed := Detect(data)
	if FamilyOf(sniffed) != FamilyImage {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, sniffed)
	}
	return sniffed, nil
}

func baseType(contentType string) string {
	m, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(m))
}
