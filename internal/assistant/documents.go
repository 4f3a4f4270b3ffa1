package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/gemini"
)

const (
	postbackAction     = "action"
	postbackDocument   = "doc"
	actionDeleteFile   = "delete_file"
	maxCardTitleRunes  = 40
	maxCardDetailRunes = 60
)

// listFiles replies with a carousel of the documents in the conversation's
// own store. It never creates a store; without one the reply is the same
// notice a question gets.
func (s *Service) listFiles(ctx context.Context, m inbound.Meta) error {
	h, ok, err := s.registry.Resolve(ctx, m.Identity)
	if err != nil {
		return s.fail(ctx, m, fmt.Errorf("resolve store: %w", err))
	}
	if !ok {
		return s.reply(ctx, m, TextReply{Text: msgNoFiles})
	}
	docs, err := s.upstream.ListDocuments(ctx, h.StoreName)
	if err != nil {
		return s.fail(ctx, m, fmt.Errorf("list documents: %w", err))
	}
	if len(docs) == 0 {
		return s.reply(ctx, m, TextReply{Text: msgNoDocuments})
	}
	return s.reply(ctx, m, filesReply(docs))
}

func filesReply(docs []gemini.Document) FilesReply {
	if len(docs) > MaxFileCards {
		docs = docs[:MaxFileCards]
	}
	cards := make([]FileCard, 0, len(docs))
	for _, d := range docs {
		title := d.DisplayName
		if title == "" {
			title = d.Name[strings.LastIndex(d.Name, "/")+1:]
		}
		cards = append(cards, FileCard{
			Title:      clip(title, maxCardTitleRunes),
			Subtitle:   clip(documentDetail(d), maxCardDetailRunes),
			DeleteData: deleteData(d.Name),
		})
	}
	return FilesReply{AltText: fmt.Sprintf("%d file(s)", len(cards)), Files: cards}
}

// clip shortens s to at most n runes on a single line.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func documentDetail(d gemini.Document) string {
	parts := make([]string, 0, 2)
	if !d.CreateTime.IsZero() {
		parts = append(parts, "Uploaded "+d.CreateTime.UTC().Format("2006-01-02 15:04"))
	}
	if d.SizeBytes > 0 {
		parts = append(parts, humanSize(d.SizeBytes))
	}
	if len(parts) == 0 {
		return "Document"
	}
	return strings.Join(parts, ", ")
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

func deleteData(document string) string {
	return url.Values{
		postbackAction:   {actionDeleteFile},
		postbackDocument: {document},
	}.Encode()
}

// HandlePostback runs the action encoded in a tapped template button.
func (s *Service) HandlePostback(ctx context.Context, ev inbound.Postback) error {
	values, err := url.ParseQuery(ev.Data)
	if err != nil || values.Get(postbackAction) != actionDeleteFile || values.Get(postbackDocument) == "" {
		s.logger.Debug("unknown postback", slog.String("data", ev.Data))
		return s.reply(ctx, ev.Meta, TextReply{Text: msgUnknownPostback})
	}
	document := values.Get(postbackDocument)

	h, ok, err := s.registry.Resolve(ctx, ev.Identity)
	if err != nil {
		return s.fail(ctx, ev.Meta, fmt.Errorf("resolve store: %w", err))
	}
	if !ok || !strings.HasPrefix(document, h.StoreName+"/documents/") {
		return s.fail(ctx, ev.Meta, fmt.Errorf("%w: %s", ErrForeignDocument, document))
	}
	if err := s.upstream.DeleteDocument(ctx, document); err != nil {
		return s.fail(ctx, ev.Meta, fmt.Errorf("delete %s: %w", document, err))
	}
	s.logger.Info("document deleted",
		slog.String("conversation", ev.Identity.Key()),
		slog.String("document", document))
	return s.reply(ctx, ev.Meta, TextReply{Text: msgDeleted})
}
