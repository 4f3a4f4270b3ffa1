package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/media"
)

// HandleFileUpload indexes a document into the conversation's own store.
// Unsupported content is rejected before any store is created.
func (s *Service) HandleFileUpload(ctx context.Context, ev inbound.FileUpload) error {
	s.acknowledge(ctx, ev.Meta, msgProcessingFile)

	err := s.ingest(ctx, ev)
	if err != nil {
		s.notify(ctx, ev.Meta, err, Classify(err).UserMessage())
		return err
	}
	if perr := s.push(ctx, ev.Meta, TextReply{Text: fileUploadedMessage(displayName(ev))}); perr != nil {
		return fmt.Errorf("push confirmation: %w", perr)
	}
	return nil
}

func (s *Service) ingest(ctx context.Context, ev inbound.FileUpload) error {
	if ev.Size > s.cfg.MaxFileBytes {
		return fmt.Errorf("%w: %d bytes declared", media.ErrAssetTooLarge, ev.Size)
	}
	data, err := s.messenger.Content(ctx, ev.MessageID, s.cfg.MaxFileBytes)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	mimeType, err := media.ResolveDocument(data, ev.FileName)
	if err != nil {
		return err
	}
	handle, err := s.registry.ResolveOrCreate(ctx, ev.Identity)
	if err != nil {
		return fmt.Errorf("resolve store: %w", err)
	}
	name := displayName(ev)
	if err := s.upstream.UploadAndWait(ctx, handle.StoreName, gemini.Upload{
		DisplayName: name,
		MIMEType:    mimeType,
		Data:        data,
	}); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	s.logger.Info("file indexed",
		slog.String("conversation", ev.Identity.Key()),
		slog.String("store", handle.StoreName),
		slog.String("file", name),
		slog.String("mime", mimeType),
		slog.Int("bytes", len(data)))
	return nil
}

func displayName(ev inbound.FileUpload) string {
	if name := strings.TrimSpace(ev.FileName); name != "" {
		return name
	}
	return "file-" + ev.MessageID
}
