// Package conversation defines the identity a chat conversation is keyed by.
// Individual chats are keyed by the user; groups and rooms are keyed by the
// group so that every member sees the same documents.
package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates Identity.
type Kind string

// Identity kind constants.
const (
	KindIndividual Kind = "user"
	KindGroup      Kind = "group"
)

// Source type values reported by the messaging platform.
const (
	SourceUser  = "user"
	SourceGroup = "group"
	SourceRoom  = "room"
)

const storeNamePrefix = "linerag"

// ErrNoIdentity is returned when an event source carries no usable id.
var ErrNoIdentity = errors.New("conversation identity unavailable")

// Identity is either Individual(userID) or Group(groupOrRoomID).
type Identity struct {
	Kind Kind
	ID   string
}

// Individual returns the identity of a one-to-one chat.
func Individual(userID string) Identity {
	return Identity{Kind: KindIndividual, ID: strings.TrimSpace(userID)}
}

// Group returns the identity shared by all members of a group or room.
func Group(groupOrRoomID string) Identity {
	return Identity{Kind: KindGroup, ID: strings.TrimSpace(groupOrRoomID)}
}

// FromSource derives the identity of an event source.
func FromSource(sourceType, userID, groupID, roomID string) (Identity, error) {
	var id Identity
	switch strings.ToLower(strings.TrimSpace(sourceType)) {
	case SourceUser:
		id = Individual(userID)
	case SourceGroup:
		id = Group(groupID)
	case SourceRoom:
		id = Group(roomID)
	default:
		return Identity{}, fmt.Errorf("%w: unknown source type %q", ErrNoIdentity, sourceType)
	}
	if id.ID == "" {
		return Identity{}, fmt.Errorf("%w: empty %s id", ErrNoIdentity, sourceType)
	}
	return id, nil
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Key is the registry key, e.g. "user:U123" or "group:C456".
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

// StoreDisplayName is the upstream store display name for this identity.
// It is a pure function of Key so every replica derives the same name.
func (i Identity) StoreDisplayName() string {
	sum := sha256.Sum256([]byte(i.Key()))
	return fmt.Sprintf("%s-%s-%s", storeNamePrefix, i.Kind, hex.EncodeToString(sum[:])[:24])
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.Key()
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Identity, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok || strings.TrimSpace(id) == "" {
		return Identity{}, fmt.Errorf("%w: malformed key %q", ErrNoIdentity, key)
	}
	switch Kind(kind) {
	case KindIndividual:
		return Individual(id), nil
	case KindGroup:
		return Group(id), nil
	default:
		return Identity{}, fmt.Errorf("%w: unknown kind %q", ErrNoIdentity, kind)
	}
}
