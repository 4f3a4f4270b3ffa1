package media

import (
	"errors"
	"testing"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

func TestFamilyOf(t *testing.T) {
	t.Parallel()

	tests := map[string]Family{
		"image/png":                 FamilyImage,
		"IMAGE/JPEG; q=1":           FamilyImage,
		"audio/mpeg":                FamilyAudio,
		"video/mp4":                 FamilyVideo,
		"application/pdf":           FamilyDocument,
		"text/plain; charset=utf-8": FamilyDocument,
		"text/markdown":             FamilyDocument,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FamilyDocument,
		"application/zip":          FamilyOther,
		"application/octet-stream": FamilyOther,
		"":                         FamilyOther,
	}
	for in, want := range tests {
		if got := FamilyOf(in); got != want {
			t.Fatalf("FamilyOf(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMimeFromName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"report.pdf":   "application/pdf",
		"NOTES.MD":     "text/markdown",
		"photo.jpeg":   "image/jpeg",
		"clip.mp4":     "video/mp4",
		"no-extension": "",
	}
	for in, want := range tests {
		if got := MimeFromName(in); got != want {
			t.Fatalf("MimeFromName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveDocument(t *testing.T) {
	t.Parallel()

	got, err := ResolveDocument(pdfHeader, "report.pdf")
	if err != nil || got != "application/pdf" {
		t.Fatalf("pdf: got %q, %v", got, err)
	}

	got, err = ResolveDocument([]byte("# Minutes\n\n- item one\n"), "minutes.md")
	if err != nil || got != "text/markdown" {
		t.Fatalf("markdown: got %q, %v", got, err)
	}

	got, err = ResolveDocument([]byte("plain words"), "")
	if err != nil || got != "text/plain" {
		t.Fatalf("plain: got %q, %v", got, err)
	}

	if _, err := ResolveDocument(pngHeader, "scan.pdf"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("png disguised as pdf should be rejected, got %v", err)
	}
}

func TestResolveImage(t *testing.T) {
	t.Parallel()

	got, err := ResolveImage(pngHeader)
	if err != nil || got != "image/png" {
		t.Fatalf("png: got %q, %v", got, err)
	}
	if _, err := ResolveImage(pdfHeader); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("pdf should not resolve as image, got %v", err)
	}
}
