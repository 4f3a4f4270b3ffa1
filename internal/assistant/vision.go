package assistant

import (
	"context"
	"fmt"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/media"
)

// HandleImageUpload describes an image. It never touches the registry and
// keeps the bytes only for the duration of the call.
func (s *Service) HandleImageUpload(ctx context.Context, ev inbound.ImageUpload) error {
	s.acknowledge(ctx, ev.Meta, msgAnalyzingImage)

	answer, err := s.describe(ctx, ev)
	if err != nil {
		s.notify(ctx, ev.Meta, err, imageFailureMessage(err))
		return err
	}
	text := msgImageEmpty
	if answer != "" {
		text = msgImageHeader + answer
	}
	if perr := s.push(ctx, ev.Meta, TextReply{Text: formatAnswer(text)}); perr != nil {
		return fmt.Errorf("push analysis: %w", perr)
	}
	return nil
}

// imageFailureMessage is the user message for a failed image, naming the
// accepted picture formats instead of document ones.
func imageFailureMessage(err error) string {
	kind := Classify(err)
	if kind == KindUnsupportedContent {
		return msgImageRejected
	}
	return kind.UserMessage()
}

func (s *Service) describe(ctx context.Context, ev inbound.ImageUpload) (string, error) {
	data, err := s.messenger.Content(ctx, ev.MessageID, s.cfg.MaxImageBytes)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	mimeType, err := media.ResolveImage(data)
	if err != nil {
		return "", err
	}
	answer, err := s.upstream.GenerateFromImage(ctx, s.cfg.Model, ImagePrompt, gemini.ImagePart{
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return answer, nil
}
