package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/memohai/linerag/internal/assistant"
	"github.com/memohai/linerag/internal/config"
	"github.com/memohai/linerag/internal/media"
	"github.com/memohai/linerag/internal/prune"
)

const (
	maxMessagesPerCall = 5
	maxAltTextRunes    = 400
	deleteLabel        = "Delete"
)

// NewClient builds the Messaging API client from configuration.
func NewClient(cfg config.LineConfig) (*linebot.Client, error) {
	opts := []linebot.ClientOption{
		linebot.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
	}
	if strings.TrimSpace(cfg.APIEndpoint) != "" {
		opts = append(opts, linebot.WithEndpointBase(cfg.APIEndpoint))
	}
	if strings.TrimSpace(cfg.DataEndpoint) != "" {
		opts = append(opts, linebot.WithEndpointBaseData(cfg.DataEndpoint))
	}
	client, err := linebot.New(cfg.ChannelSecret, cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("line client: %w", err)
	}
	return client, nil
}

// Messenger sends replies and downloads message content.
type Messenger struct {
	client *linebot.Client
	logger *slog.Logger
}

func NewMessenger(log *slog.Logger, client *linebot.Client) *Messenger {
	if log == nil {
		log = slog.Default()
	}
	return &Messenger{
		client: client,
		logger: log.With(slog.String("service", "line_messenger")),
	}
}

func (m *Messenger) Reply(ctx context.Context, replyToken string, replies ...assistant.Reply) error {
	msgs := render(replies)
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > maxMessagesPerCall {
		m.logger.Warn("reply truncated", slog.Int("messages", len(msgs)))
		msgs = msgs[:maxMessagesPerCall]
	}
	if _, err := m.client.ReplyMessage(replyToken, msgs...).WithContext(ctx).Do(); err != nil {
		return wrapAPIError("reply", err)
	}
	return nil
}

func (m *Messenger) Push(ctx context.Context, to string, replies ...assistant.Reply) error {
	msgs := render(replies)
	for len(msgs) > 0 {
		n := min(len(msgs), maxMessagesPerCall)
		if _, err := m.client.PushMessage(to, msgs[:n]...).WithContext(ctx).Do(); err != nil {
			return wrapAPIError("push", err)
		}
		msgs = msgs[n:]
	}
	return nil
}

// Content downloads the binary of a message. Anything over maxBytes fails
// with media.ErrAssetTooLarge.
func (m *Messenger) Content(ctx context.Context, messageID string, maxBytes int64) ([]byte, error) {
	res, err := m.client.GetMessageContent(messageID).WithContext(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("get content", err)
	}
	defer res.Content.Close()

	if maxBytes > 0 && res.ContentLength > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", media.ErrAssetTooLarge, res.ContentLength)
	}
	data, err := media.ReadAllWithLimit(res.Content, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", messageID, err)
	}
	m.logger.Debug("content downloaded",
		slog.String("message_id", messageID),
		slog.String("content_type", res.ContentType),
		slog.Int("bytes", len(data)))
	return data, nil
}

func render(replies []assistant.Reply) []linebot.SendingMessage {
	msgs := make([]linebot.SendingMessage, 0, len(replies))
	for _, r := range replies {
		switch reply := r.(type) {
		case assistant.TextReply:
			for _, chunk := range prune.Split(reply.Text, prune.MaxMessageRunes) {
				msgs = append(msgs, linebot.NewTextMessage(chunk))
			}
		case assistant.FilesReply:
			if msg := carousel(reply); msg != nil {
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs
}

func carousel(reply assistant.FilesReply) linebot.SendingMessage {
	files := reply.Files
	if len(files) == 0 {
		return nil
	}
	if len(files) > assistant.MaxFileCards {
		files = files[:assistant.MaxFileCards]
	}
	columns := make([]*linebot.CarouselColumn, 0, len(files))
	for _, f := range files {
		text := f.Subtitle
		if text == "" {
			text = "-"
		}
		columns = append(columns, &linebot.CarouselColumn{
			Title: f.Title,
			Text:  text,
			Actions: []linebot.TemplateAction{
				&linebot.PostbackAction{Label: deleteLabel, Data: f.DeleteData},
			},
		})
	}
	alt := reply.AltText
	if alt == "" {
		alt = "Files"
	}
	alt = prune.Truncate(alt, prune.Config{MaxRunes: maxAltTextRunes})
	return linebot.NewTemplateMessage(alt, linebot.NewCarouselTemplate(columns...))
}

// wrapAPIError attaches the assistant sentinel matching a platform failure.
func wrapAPIError(op string, err error) error {
	var apiErr *linebot.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("line %s: %w: %w", op, assistant.ErrPlatformAuth, err)
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("line %s: %w: %w", op, assistant.ErrPlatformNotFound, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("line %s: %w: %w", op, assistant.ErrPlatformUnavailable, err)
		}
		return fmt.Errorf("line %s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("line %s: %w: %w", op, assistant.ErrPlatformUnavailable, err)
	}
	return fmt.Errorf("line %s: %w", op, err)
}
