package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memohai/linerag/internal/gemini"
)

var (
	ErrInvalidMode = errors.New("registry: invalid conversation mode")
	ErrEmptyKey    = errors.New("registry: empty key")
)

// Handle points at the upstream File Search store owned by a conversation.
type Handle struct {
	StoreName   string
	DisplayName string
	CreatedAt   time.Time
}

func (h Handle) IsZero() bool {
	return h.StoreName == ""
}

// Entry is a persisted key and its handle.
type Entry struct {
	Key    string
	Handle Handle
}

// Mode selects which store a conversation's questions are answered from.
type Mode string

const (
	ModePersonal  Mode = "personal"
	ModeKnowledge Mode = "knowledge"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModePersonal:
		return ModePersonal, nil
	case ModeKnowledge:
		return ModeKnowledge, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// Store persists key to handle mappings and conversation modes.
type Store interface {
	Get(ctx context.Context, key string) (Handle, bool, error)
	// PutIfAbsent stores h under key unless a handle already exists, and
	// returns whichever handle is stored afterwards.
	PutIfAbsent(ctx context.Context, key string, h Handle) (Handle, error)
	GetMode(ctx context.Context, key string) (Mode, bool, error)
	SetMode(ctx context.Context, key string, mode Mode) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// Upstream is the subset of the Gemini client the registry needs.
type Upstream interface {
	CreateStore(ctx context.Context, displayName string) (gemini.Store, error)
	FindStore(ctx context.Context, displayName string) (gemini.Store, bool, error)
}

// Locker serializes store creation for a key, possibly across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

const namedPrefix = "named:"

func namedKey(displayName string) string {
	return namedPrefix + displayName
}
