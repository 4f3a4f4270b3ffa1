package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/media"
	"github.com/memohai/linerag/internal/registry"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

type sent struct {
	token   string
	to      string
	replies []Reply
}

func (s sent) text() string {
	var parts []string
	for _, r := range s.replies {
		if t, ok := r.(TextReply); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type fakeMessenger struct {
	mu       sync.Mutex
	replies  []sent
	pushes   []sent
	content  map[string][]byte
	replyErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{content: map[string][]byte{}}
}

func (f *fakeMessenger) Reply(_ context.Context, token string, replies ...Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, sent{token: token, replies: replies})
	return nil
}

func (f *fakeMessenger) Push(_ context.Context, to string, replies ...Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, sent{to: to, replies: replies})
	return nil
}

func (f *fakeMessenger) Content(_ context.Context, messageID string, maxBytes int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.content[messageID]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", messageID, ErrPlatformNotFound)
	}
	if int64(len(data)) > maxBytes {
		return nil, media.ErrAssetTooLarge
	}
	return data, nil
}

func (f *fakeMessenger) allReplies() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.replies...)
}

func (f *fakeMessenger) allPushes() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.pushes...)
}

// fakeAI stands in for both the store API and the model.
type fakeAI struct {
	mu          sync.Mutex
	stores      map[string]string
	docs        map[string][]gemini.Document
	creates     atomic.Int32
	createDelay time.Duration
	uploadErr   error
	answer      string
	imageAnswer string
	imageCalls  atomic.Int32
	lastQuery   gemini.GroundedRequest
	deleted     []string
}

func newFakeAI() *fakeAI {
	return &fakeAI{stores: map[string]string{}, docs: map[string][]gemini.Document{}}
}

func (f *fakeAI) CreateStore(_ context.Context, displayName string) (gemini.Store, error) {
	n := f.creates.Add(1)
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	name := fmt.Sprintf("fileSearchStores/store-%d", n)
	f.mu.Lock()
	f.stores[name] = displayName
	f.mu.Unlock()
	return gemini.Store{Name: name, DisplayName: displayName}, nil
}

func (f *fakeAI) FindStore(_ context.Context, displayName string) (gemini.Store, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, dn := range f.stores {
		if dn == displayName {
			return gemini.Store{Name: name, DisplayName: dn}, true, nil
		}
	}
	return gemini.Store{}, false, nil
}

func (f *fakeAI) UploadAndWait(_ context.Context, store string, doc gemini.Upload) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stores[store]; !ok {
		return gemini.ErrNotFound
	}
	f.docs[store] = append(f.docs[store], gemini.Document{
		Name:        fmt.Sprintf("%s/documents/doc-%d", store, len(f.docs[store])+1),
		DisplayName: doc.DisplayName,
		MimeType:    doc.MIMEType,
		SizeBytes:   int64(len(doc.Data)),
	})
	return nil
}

func (f *fakeAI) GenerateGrounded(_ context.Context, req gemini.GroundedRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = req
	if f.answer != "" {
		return f.answer, nil
	}
	var names []string
	for _, store := range req.Stores {
		for _, d := range f.docs[store] {
			names = append(names, d.DisplayName)
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	return "**Answer** based on " + strings.Join(names, ", "), nil
}

func (f *fakeAI) GenerateFromImage(_ context.Context, _, _ string, image gemini.ImagePart) (string, error) {
	f.imageCalls.Add(1)
	if image.MIMEType != "image/png" {
		return "", gemini.ErrUnsupportedContent
	}
	return f.imageAnswer, nil
}

func (f *fakeAI) ListDocuments(_ context.Context, store string) ([]gemini.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gemini.Document(nil), f.docs[store]...), nil
}

func (f *fakeAI) DeleteDocument(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for store, docs := range f.docs {
		for i, d := range docs {
			if d.Name == name {
				f.docs[store] = append(docs[:i], docs[i+1:]...)
				f.deleted = append(f.deleted, name)
				return nil
			}
		}
	}
	return gemini.ErrNotFound
}

// forbiddenRegistry fails the test on any use.
type forbiddenRegistry struct{ t *testing.T }

func (r forbiddenRegistry) Resolve(context.Context, conversation.Identity) (registry.Handle, bool, error) {
	r.t.Errorf("registry Resolve called")
	return registry.Handle{}, false, nil
}

func (r forbiddenRegistry) ResolveOrCreate(context.Context, conversation.Identity) (registry.Handle, error) {
	r.t.Errorf("registry ResolveOrCreate called")
	return registry.Handle{}, nil
}

func (r forbiddenRegistry) ResolveNamed(context.Context, string) (registry.Handle, bool, error) {
	r.t.Errorf("registry ResolveNamed called")
	return registry.Handle{}, false, nil
}

func (r forbiddenRegistry) Mode(context.Context, conversation.Identity) (registry.Mode, error) {
	r.t.Errorf("registry Mode called")
	return registry.ModePersonal, nil
}

func (r forbiddenRegistry) SetMode(context.Context, conversation.Identity, registry.Mode) error {
	r.t.Errorf("registry SetMode called")
	return nil
}

type harness struct {
	svc  *Service
	reg  *registry.Service
	ai   *fakeAI
	msgr *fakeMessenger
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	ai := newFakeAI()
	reg, err := registry.NewService(nil, registry.NewMemoryStore(), ai, registry.NewLocalLocker(), registry.Options{CacheSize: 16})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model == "" {
		cfg.Model = "test-model"
	}
	msgr := newFakeMessenger()
	return &harness{
		svc:  NewService(nil, cfg, reg, ai, msgr),
		reg:  reg,
		ai:   ai,
		msgr: msgr,
	}
}

func meta(id conversation.Identity, token string) inbound.Meta {
	return inbound.Meta{Identity: id, ReplyToken: token, EventID: "ev-" + token}
}
