package gemini

import (
	"encoding/json"
	"strings"
	"time"
)

// Store is a File Search store resource.
type Store struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	CreateTime  time.Time `json:"createTime"`
}

// Document is a file indexed in a store.
type Document struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	MimeType    string    `json:"mimeType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,string,omitempty"`
	State       string    `json:"state,omitempty"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
}

// Operation is a long-running upstream operation.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *Status         `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Status is google.rpc.Status as returned inside operations and error bodies.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// Upload is one document destined for a store.
type Upload struct {
	DisplayName string
	MIMEType    string
	Data        []byte
}

// ImagePart is an inline image for multimodal generation.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

// GroundedRequest asks the model to answer Query using only the given stores.
type GroundedRequest struct {
	Model             string
	Query             string
	Stores            []string
	Temperature       float64
	SystemInstruction string
}

type errorEnvelope struct {
	Error Status `json:"error"`
}

type listStoresResponse struct {
	FileSearchStores []Store `json:"fileSearchStores"`
	NextPageToken    string  `json:"nextPageToken"`
}

type listDocumentsResponse struct {
	Documents     []Document `json:"documents"`
	NextPageToken string     `json:"nextPageToken"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type tool struct {
	FileSearch *fileSearchTool `json:"fileSearch,omitempty"`
}

type fileSearchTool struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	Tools             []tool            `json:"tools,omitempty"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Text joins the text parts of the first candidate.
func (r generateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
