package inbound

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/media"
)

// Classify maps a webhook event to exactly one Event. It performs no I/O.
func Classify(ev *linebot.Event) Event {
	if ev == nil {
		return Unsupported{Reason: "empty event"}
	}
	m := Meta{
		ReplyToken: ev.ReplyToken,
		EventID:    ev.WebhookEventID,
		Redelivery: ev.DeliveryContext.IsRedelivery,
	}
	if ev.Source != nil {
		id, err := conversation.FromSource(string(ev.Source.Type), ev.Source.UserID, ev.Source.GroupID, ev.Source.RoomID)
		if err == nil {
			m.Identity = id
		}
	}
	if m.Identity.IsZero() {
		return Unsupported{Meta: m, Reason: "no conversation identity"}
	}

	switch ev.Type {
	case linebot.EventTypeMessage:
		return classifyMessage(m, ev.Message)
	case linebot.EventTypeFollow:
		return Follow{Meta: m}
	case linebot.EventTypePostback:
		if ev.Postback == nil || ev.Postback.Data == "" {
			return Unsupported{Meta: m, Reason: "empty postback"}
		}
		return Postback{Meta: m, Data: ev.Postback.Data}
	default:
		return Unsupported{Meta: m, Reason: "event type " + string(ev.Type)}
	}
}

func classifyMessage(m Meta, msg linebot.Message) Event {
	switch message := msg.(type) {
	case *linebot.TextMessage:
		text := strings.TrimSpace(message.Text)
		if text == "" {
			return Unsupported{Meta: m, Reason: "empty text"}
		}
		return TextQuery{Meta: m, Text: text}
	case *linebot.ImageMessage:
		return ImageUpload{Meta: m, MessageID: message.ID}
	case *linebot.FileMessage:
		switch media.FamilyOf(media.MimeFromName(message.FileName)) {
		case media.FamilyImage:
			return ImageUpload{Meta: m, MessageID: message.ID, FileName: message.FileName}
		case media.FamilyAudio, media.FamilyVideo:
			return Unsupported{Meta: m, Reason: "media file " + message.FileName, Reply: true}
		default:
			return FileUpload{Meta: m, MessageID: message.ID, FileName: message.FileName, Size: int64(message.FileSize)}
		}
	case *linebot.AudioMessage:
		return Unsupported{Meta: m, Reason: "audio message", Reply: true}
	case *linebot.VideoMessage:
		return Unsupported{Meta: m, Reason: "video message", Reply: true}
	case *linebot.StickerMessage:
		return Unsupported{Meta: m, Reason: "sticker message", Reply: true}
	case *linebot.LocationMessage:
		return Unsupported{Meta: m, Reason: "location message", Reply: true}
	default:
		return Unsupported{Meta: m, Reason: "unknown message type", Reply: true}
	}
}
