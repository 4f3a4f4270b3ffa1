package assistant

import (
	"github.com/memohai/linerag/internal/markdown"
	"github.com/memohai/linerag/internal/prune"
	"github.com/memohai/linerag/internal/registry"
)

// Reply is an outgoing chat message. Messenger implementations render it
// into platform messages.
type Reply interface {
	isReply()
}

// TextReply is a plain text message.
type TextReply struct {
	Text string
}

// FileCard is one document entry in a FilesReply.
type FileCard struct {
	Title    string
	Subtitle string
	// DeleteData is the postback payload of the card's delete action.
	DeleteData string
}

// FilesReply lists documents with a delete action each.
type FilesReply struct {
	AltText string
	Files   []FileCard
}

func (TextReply) isReply()  {}
func (FilesReply) isReply() {}

// MaxFileCards is the most columns a single carousel can carry.
const MaxFileCards = 10

const (
	msgProcessingFile  = "Processing your file, please wait..."
	msgAnalyzingImage  = "Analyzing your image, please wait..."
	msgImageHeader     = "Image analysis:\n\n"
	msgImageEmpty      = "Sorry, I could not analyze this image."
	msgImageRejected   = "Sorry, this image could not be processed. Please send a JPEG, PNG, GIF or WebP picture under the size limit."
	msgNoFiles         = "You have not uploaded any files yet.\n\nSend me a document (PDF, DOCX, TXT, Markdown) first, then ask your questions.\n\nTip: send a picture to have it described right away."
	msgNoAnswer        = "Sorry, I could not find relevant information in the documents."
	msgNoDocuments     = "There are no documents in this conversation yet.\n\nUpload a file to start asking questions."
	msgKBUnavailable   = "The shared knowledge base is not available right now. Switch back with \"mode personal\" to use your own files."
	msgKBDisabled      = "The shared knowledge base is not enabled for this assistant."
	msgUnsupported     = "Sorry, this message type is not supported. Send a document, an image, or a text question."
	msgDeleted         = "File deleted.\n\nSend \"list files\" to see the remaining files."
	msgUnknownPostback = "Sorry, that action is no longer available."
	msgWelcome         = "Hi! I can answer questions about your documents.\n\n" +
		"- Send a PDF, Word, text or Markdown file to add it to this chat's library.\n" +
		"- Ask a question in plain text to get an answer grounded in those files.\n" +
		"- Send a picture and I will describe it.\n" +
		"- Send \"list files\" to see and delete uploaded files.\n" +
		"- Send \"mode knowledge\" or \"mode personal\" to switch between the shared knowledge base and your own files."
)

func fileUploadedMessage(name string) string {
	return "File uploaded: " + name + "\n\nYou can now ask me anything about this file."
}

// modeIndicator marks which library an answer came from.
func modeIndicator(mode registry.Mode) string {
	if mode == registry.ModeKnowledge {
		return "📚"
	}
	return "📁"
}

func modeDescription(mode string) string {
	if mode == "knowledge" {
		return "Knowledge base mode: questions are answered from the shared knowledge base."
	}
	return "Personal mode: questions are answered from the files uploaded to this chat."
}

// formatAnswer turns model output into a single platform text message.
func formatAnswer(raw string) string {
	return prune.Message(markdown.ToPlainText(raw))
}
