package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "v1beta"
	listPageSize   = 20
)

// Options configures a Client.
type Options struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	PollInterval  time.Duration
	// Observe, when set, receives the duration of every upstream call.
	Observe func(op string, d time.Duration)
}

// Client calls the Gemini REST API for File Search stores and generation.
type Client struct {
	http          *resty.Client
	logger        *slog.Logger
	timeout       time.Duration
	uploadTimeout time.Duration
	pollInterval  time.Duration
	observe       func(op string, d time.Duration)
}

func NewClient(log *slog.Logger, opts Options) *Client {
	if log == nil {
		log = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 2 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetHeader("x-goog-api-key", opts.APIKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(opts.UploadTimeout),
		logger:        log.With(slog.String("service", "gemini")),
		timeout:       opts.Timeout,
		uploadTimeout: opts.UploadTimeout,
		pollInterval:  opts.PollInterval,
		observe:       opts.Observe,
	}
}

// CreateStore creates a File Search store with the given display name.
func (c *Client) CreateStore(ctx context.Context, displayName string) (Store, error) {
	const op = "create_store"
	defer c.track(op, time.Now())
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var store Store
	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"displayName": displayName}).
		SetResult(&store).
		SetError(&apiErr).
		Post(versioned("fileSearchStores"))
	if err := checkResponse(op, resp, err, apiErr); err != nil {
		return Store{}, err
	}
	if store.Name == "" {
		return Store{}, &APIError{Op: op, Message: "response carried no store name"}
	}
	c.logger.Info("file search store created",
		slog.String("store", store.Name),
		slog.String("display_name", displayName))
	return store, nil
}

// ListStores returns every store visible to the API key.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	const op = "list_stores"
	defer c.track(op, time.Now())
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stores []Store
	pageToken := ""
	for {
		var page listStoresResponse
		var apiErr errorEnvelope
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("pageSize", strconv.Itoa(listPageSize)).
			SetQueryParam("pageToken", pageToken).
			SetResult(&page).
			SetError(&apiErr).
			Get(versioned("fileSearchStores"))
		if err := checkResponse(op, resp, err, apiErr); err != nil {
			return nil, err
		}
		stores = append(stores, page.FileSearchStores...)
		if page.NextPageToken == "" {
			return stores, nil
		}
		pageToken = page.NextPageToken
	}
}

// FindStore returns the first store whose display name matches.
func (c *Client) FindStore(ctx context.Context, displayName string) (Store, bool, error) {
	stores, err := c.ListStores(ctx)
	if err != nil {
		return Store{}, false, err
	}
	for _, s := range stores {
		if s.DisplayName == displayName {
			return s, true, nil
		}
	}
	return Store{}, false, nil
}

// UploadToStore starts a resumable upload of doc into store and returns the
// long-running indexing operation.
func (c *Client) UploadToStore(ctx context.Context, store string, doc Upload) (Operation, error) {
	const op = "upload"
	defer c.track(op, time.Now())
	if strings.TrimSpace(store) == "" {
		return Operation{}, fmt.Errorf("store name is required")
	}
	if len(doc.Data) == 0 {
		return Operation{}, &APIError{Op: op, Status: "INVALID_ARGUMENT", Message: "empty document"}
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	var apiErr errorEnvelope
	meta := map[string]string{"displayName": doc.DisplayName, "mimeType": mimeType}
	start, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Goog-Upload-Protocol", "resumable").
		SetHeader("X-Goog-Upload-Command", "start").
		SetHeader("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(doc.Data))).
		SetHeader("X-Goog-Upload-Header-Content-Type", mimeType).
		SetBody(meta).
		SetError(&apiErr).
		Post("/upload/" + apiVersion + "/" + store + ":uploadToFileSearchStore")
	if err := checkResponse(op, start, err, apiErr); err != nil {
		return Operation{}, err
	}
	uploadURL := start.Header().Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return Operation{}, &APIError{Op: op, StatusCode: start.StatusCode(), Message: "upload session url missing"}
	}

	var operation Operation
	apiErr = errorEnvelope{}
	finish, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Goog-Upload-Command", "upload, finalize").
		SetHeader("X-Goog-Upload-Offset", "0").
		SetHeader("Content-Type", mimeType).
		SetBody(doc.Data).
		SetResult(&operation).
		SetError(&apiErr).
		Post(uploadURL)
	if err := checkResponse(op, finish, err, apiErr); err != nil {
		return Operation{}, err
	}
	return operation, nil
}

// GetOperation fetches the current state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (Operation, error) {
	const op = "get_operation"
	defer c.track(op, time.Now())
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var operation Operation
	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&operation).
		SetError(&apiErr).
		Get(versioned(name))
	if err := checkResponse(op, resp, err, apiErr); err != nil {
		return Operation{}, err
	}
	return operation, nil
}

// WaitOperation polls op until it completes or ctx expires.
func (c *Client) WaitOperation(ctx context.Context, operation Operation) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		if operation.Done {
			if operation.Error != nil {
				return operationError(operation)
			}
			return nil
		}
		if operation.Name == "" {
			return &APIError{Op: "wait_operation", Message: "pending operation has no name"}
		}
		select {
		case <-ctx.Done():
			return &APIError{Op: "wait_operation", Message: "indexing did not finish in time", Err: ctx.Err()}
		case <-ticker.C:
		}
		next, err := c.GetOperation(ctx, operation.Name)
		if err != nil {
			return err
		}
		operation = next
	}
}

// UploadAndWait uploads doc and blocks until indexing finishes, bounded by
// the configured upload timeout.
func (c *Client) UploadAndWait(ctx context.Context, store string, doc Upload) error {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()
	operation, err := c.UploadToStore(ctx, store, doc)
	if err != nil {
		return err
	}
	if err := c.WaitOperation(ctx, operation); err != nil {
		return err
	}
	c.logger.Info("document indexed",
		slog.String("store", store),
		slog.String("display_name", doc.DisplayName),
		slog.Int("bytes", len(doc.Data)))
	return nil
}

// ListDocuments returns every document in store.
func (c *Client) ListDocuments(ctx context.Context, store string) ([]Document, error) {
	const op = "list_documents"
	defer c.track(op, time.Now())
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var docs []Document
	pageToken := ""
	for {
		var page listDocumentsResponse
		var apiErr errorEnvelope
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("pageSize", strconv.Itoa(listPageSize)).
			SetQueryParam("pageToken", pageToken).
			SetResult(&page).
			SetError(&apiErr).
			Get(versioned(store + "/documents"))
		if err := checkResponse(op, resp, err, apiErr); err != nil {
			return nil, err
		}
		docs = append(docs, page.Documents...)
		if page.NextPageToken == "" {
			return docs, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteDocument removes a document and its indexed chunks.
func (c *Client) DeleteDocument(ctx context.Context, name string) error {
	const op = "delete_document"
	defer c.track(op, time.Now())
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("force", "true").
		SetError(&apiErr).
		Delete(versioned(name))
	return checkResponse(op, resp, err, apiErr)
}

// GenerateGrounded answers a query with the File Search tool restricted to
// req.Stores. An empty string means the model produced no text.
func (c *Client) GenerateGrounded(ctx context.Context, req GroundedRequest) (string, error) {
	temperature := req.Temperature
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Query}}}},
		Tools: []tool{{FileSearch: &fileSearchTool{
			FileSearchStoreNames: req.Stores,
		}}},
		GenerationConfig: &generationConfig{Temperature: &temperature},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	return c.generate(ctx, "generate_grounded", req.Model, body)
}

// GenerateFromImage describes an image following prompt.
func (c *Client) GenerateFromImage(ctx context.Context, model, prompt string, image ImagePart) (string, error) {
	if len(image.Data) == 0 {
		return "", &APIError{Op: "generate_image", Status: "INVALID_ARGUMENT", Message: "empty image"}
	}
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{
			{Text: prompt},
			{InlineData: &inlineData{
				MimeType: image.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(image.Data),
			}},
		}}},
	}
	return c.generate(ctx, "generate_image", model, body)
}

func (c *Client) generate(ctx context.Context, op, model string, body generateRequest) (string, error) {
	defer c.track(op, time.Now())
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		return "", fmt.Errorf("model is required")
	}
	var out generateResponse
	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(versioned("models/" + url.PathEscape(model) + ":generateContent"))
	if err := checkResponse(op, resp, err, apiErr); err != nil {
		return "", err
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		c.logger.Warn("prompt blocked", slog.String("op", op), slog.String("reason", out.PromptFeedback.BlockReason))
	}
	return out.Text(), nil
}

func (c *Client) track(op string, started time.Time) {
	if c.observe != nil {
		c.observe(op, time.Since(started))
	}
}

func versioned(path string) string {
	return "/" + apiVersion + "/" + strings.TrimLeft(path, "/")
}

func checkResponse(op string, resp *resty.Response, err error, apiErr errorEnvelope) error {
	if err != nil {
		apiError := &APIError{Op: op, Err: err}
		if errors.Is(err, context.Canceled) {
			apiError.Status = "CANCELLED"
		}
		return apiError
	}
	if resp == nil {
		return &APIError{Op: op, Message: "no response"}
	}
	if resp.IsError() {
		message := apiErr.Error.Message
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Status:     apiErr.Error.Status,
			Message:    message,
		}
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return &APIError{Op: op, StatusCode: resp.StatusCode(), Message: "unexpected status"}
	}
	return nil
}

func operationError(operation Operation) error {
	status := rpcCodeNames[operation.Error.Code]
	return &APIError{
		Op:      "wait_operation",
		Status:  status,
		Message: operation.Error.Message,
	}
}
