package assistant

import (
	"context"
	"errors"
	"net"

	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/media"
)

var (
	// Messaging platform failures, wrapped by Messenger implementations.
	ErrPlatformAuth        = errors.New("messaging platform rejected credentials")
	ErrPlatformNotFound    = errors.New("messaging platform resource not found")
	ErrPlatformUnavailable = errors.New("messaging platform unavailable")

	ErrPanic           = errors.New("event handler panicked")
	ErrForeignDocument = errors.New("document does not belong to this conversation")
)

// Kind is the user-facing failure category.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindUpstreamUnavailable
	KindUnsupportedContent
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUnsupportedContent:
		return "unsupported_content"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Classify maps an error from any handler step to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}
	switch {
	case errors.Is(err, ErrPanic):
		return KindInternal
	case errors.Is(err, gemini.ErrAuthentication), errors.Is(err, ErrPlatformAuth):
		return KindAuthentication
	case errors.Is(err, gemini.ErrUnsupportedContent),
		errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrAssetTooLarge),
		errors.Is(err, media.ErrEmptyPayload):
		return KindUnsupportedContent
	case errors.Is(err, gemini.ErrNotFound),
		errors.Is(err, ErrPlatformNotFound),
		errors.Is(err, ErrForeignDocument):
		return KindNotFound
	case errors.Is(err, gemini.ErrUnavailable),
		errors.Is(err, ErrPlatformUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return KindUpstreamUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUpstreamUnavailable
	}
	return KindInternal
}

// UserMessage is the reply sent for a failure of kind k.
func (k Kind) UserMessage() string {
	switch k {
	case KindAuthentication:
		return "The assistant is not configured correctly right now. Please contact the administrator."
	case KindUpstreamUnavailable:
		return "The AI service is busy or did not respond in time. Please try again in a moment."
	case KindUnsupportedContent:
		return "Sorry, this file could not be processed. Please send a PDF, Word, text or Markdown document under the size limit."
	case KindNotFound:
		return "That item could not be found. It may have expired or been deleted."
	default:
		return "Something went wrong while handling your message. Please try again."
	}
}
