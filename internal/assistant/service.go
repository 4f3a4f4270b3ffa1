package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/media"
	"github.com/memohai/linerag/internal/registry"
)

// Messenger talks to the messaging platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, replies ...Reply) error
	Push(ctx context.Context, to string, replies ...Reply) error
	// Content downloads the binary of a message, refusing more than maxBytes.
	Content(ctx context.Context, messageID string, maxBytes int64) ([]byte, error)
}

// Upstream is the AI service.
type Upstream interface {
	UploadAndWait(ctx context.Context, store string, doc gemini.Upload) error
	GenerateGrounded(ctx context.Context, req gemini.GroundedRequest) (string, error)
	GenerateFromImage(ctx context.Context, model, prompt string, image gemini.ImagePart) (string, error)
	ListDocuments(ctx context.Context, store string) ([]gemini.Document, error)
	DeleteDocument(ctx context.Context, name string) error
}

// Registry resolves conversation stores.
type Registry interface {
	Resolve(ctx context.Context, id conversation.Identity) (registry.Handle, bool, error)
	ResolveOrCreate(ctx context.Context, id conversation.Identity) (registry.Handle, error)
	ResolveNamed(ctx context.Context, displayName string) (registry.Handle, bool, error)
	Mode(ctx context.Context, id conversation.Identity) (registry.Mode, error)
	SetMode(ctx context.Context, id conversation.Identity, mode registry.Mode) error
}

// ImagePrompt is the fixed instruction sent with every image.
const ImagePrompt = "Describe this image in detail, including the main objects, the scene, and any text it contains."

type Config struct {
	Model         string
	Temperature   float64
	MaxFileBytes  int64
	MaxImageBytes int64
	// KnowledgeBaseStore is the display name of the shared store. Empty
	// disables knowledge mode.
	KnowledgeBaseStore string
	// SystemPrompt, when set, is sent as the system instruction of every
	// grounded question.
	SystemPrompt string
}

// Service handles classified events for one bot.
type Service struct {
	cfg       Config
	registry  Registry
	upstream  Upstream
	messenger Messenger
	logger    *slog.Logger
}

func NewService(log *slog.Logger, cfg Config, reg Registry, upstream Upstream, messenger Messenger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = media.MaxDocumentBytes
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = media.MaxImageBytes
	}
	return &Service{
		cfg:       cfg,
		registry:  reg,
		upstream:  upstream,
		messenger: messenger,
		logger:    log.With(slog.String("service", "assistant")),
	}
}

// Handle routes ev to its handler. The returned error has already been
// reported to the user.
func (s *Service) Handle(ctx context.Context, ev inbound.Event) error {
	switch e := ev.(type) {
	case inbound.TextQuery:
		return s.HandleTextQuery(ctx, e)
	case inbound.FileUpload:
		return s.HandleFileUpload(ctx, e)
	case inbound.ImageUpload:
		return s.HandleImageUpload(ctx, e)
	case inbound.Postback:
		return s.HandlePostback(ctx, e)
	case inbound.Follow:
		return s.HandleFollow(ctx, e)
	case inbound.Unsupported:
		return s.HandleUnsupported(ctx, e)
	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
}

// Recovered reports a handler panic to the conversation.
func (s *Service) Recovered(ctx context.Context, ev inbound.Event, err error) {
	m := inbound.MetaOf(ev)
	if m.Identity.IsZero() {
		return
	}
	s.notify(ctx, m, err, Classify(err).UserMessage())
}

func (s *Service) HandleFollow(ctx context.Context, ev inbound.Follow) error {
	return s.reply(ctx, ev.Meta, TextReply{Text: msgWelcome})
}

func (s *Service) HandleUnsupported(ctx context.Context, ev inbound.Unsupported) error {
	if !ev.Reply || ev.ReplyToken == "" {
		s.logger.Debug("event ignored", slog.String("reason", ev.Reason))
		return nil
	}
	return s.reply(ctx, ev.Meta, TextReply{Text: msgUnsupported})
}

// reply answers through the reply token, falling back to a push when the
// event carried none.
func (s *Service) reply(ctx context.Context, m inbound.Meta, replies ...Reply) error {
	if m.ReplyToken == "" {
		return s.push(ctx, m, replies...)
	}
	return s.messenger.Reply(ctx, m.ReplyToken, replies...)
}

func (s *Service) push(ctx context.Context, m inbound.Meta, replies ...Reply) error {
	return s.messenger.Push(ctx, m.Identity.ID, replies...)
}

// fail reports err with a reply when the reply token is still unused, and
// returns err for the caller to propagate.
func (s *Service) fail(ctx context.Context, m inbound.Meta, err error) error {
	kind := Classify(err)
	if rerr := s.reply(ctx, m, TextReply{Text: kind.UserMessage()}); rerr != nil {
		s.logger.Warn("error reply failed", slog.String("kind", kind.String()), slog.Any("error", rerr))
	}
	return err
}

// notify pushes text in place of err, for handlers that already spent the
// reply token on an acknowledgement.
func (s *Service) notify(ctx context.Context, m inbound.Meta, err error, text string) {
	kind := Classify(err)
	// The event context may be the one that expired.
	pushCtx := context.WithoutCancel(ctx)
	if perr := s.push(pushCtx, m, TextReply{Text: text}); perr != nil {
		s.logger.Warn("error push failed", slog.String("kind", kind.String()), slog.Any("error", perr))
	}
}

// acknowledge sends the "please wait" reply. Failure is logged only; the
// final result is pushed either way.
func (s *Service) acknowledge(ctx context.Context, m inbound.Meta, text string) {
	if m.ReplyToken == "" {
		return
	}
	if err := s.messenger.Reply(ctx, m.ReplyToken, TextReply{Text: text}); err != nil {
		s.logger.Warn("acknowledgement failed", slog.Any("error", err))
	}
}
