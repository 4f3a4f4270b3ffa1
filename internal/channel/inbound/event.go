// Package inbound turns platform webhook events into the closed set of
// requests the assistant knows how to serve.
package inbound

import "github.com/memohai/linerag/internal/conversation"

// Meta is carried by every classified event.
type Meta struct {
	Identity   conversation.Identity
	ReplyToken string
	EventID    string
	Redelivery bool
}

func (m Meta) meta() Meta { return m }

// Event is one of TextQuery, FileUpload, ImageUpload, Unsupported, Follow or
// Postback.
type Event interface {
	Kind() string
	meta() Meta
}

// MetaOf returns the common fields of ev.
func MetaOf(ev Event) Meta {
	return ev.meta()
}

// TextQuery is a question (or command) typed by the user.
type TextQuery struct {
	Meta
	Text string
}

// FileUpload is a document to index into the conversation's store.
type FileUpload struct {
	Meta
	MessageID string
	FileName  string
	Size      int64
}

// ImageUpload is a picture to describe. FileName is set when the image was
// sent as a file attachment.
type ImageUpload struct {
	Meta
	MessageID string
	FileName  string
}

// Unsupported is anything else. Reply tells whether the user should be told
// the format is not supported.
type Unsupported struct {
	Meta
	Reason string
	Reply  bool
}

// Follow is sent when a user adds the bot as a friend.
type Follow struct {
	Meta
}

// Postback carries the data of a tapped template action.
type Postback struct {
	Meta
	Data string
}

func (TextQuery) Kind() string   { return "text" }
func (FileUpload) Kind() string  { return "file" }
func (ImageUpload) Kind() string { return "image" }
func (Unsupported) Kind() string { return "unsupported" }
func (Follow) Kind() string      { return "follow" }
func (Postback) Kind() string    { return "postback" }
