package app

import (
	"context"
	"io"
	"slices"
	"sync"

	"ragc/internal/domain"
	"ragc/internal/gateway"
)

// fakeGateway is an in-memory Gateway that records every call.
type fakeGateway struct {
	mu          sync.Mutex
	collections []string
	calls       []string

	listErr   error
	createErr error
	deleteErr error
	infoErr   error
	addErr    error
	uploadErr error
	searchErr error
	chatErr   error

	results  []domain.SearchResult
	reply    gateway.ChatReply
	info     domain.CollectionInfo
	lastChat gateway.ChatRequest
	lastSrch gateway.SearchRequest
	lastUp   gateway.UploadRequest
	upData   string
	lastAdd  []domain.Payload
}

func (f *fakeGateway) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGateway) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeGateway) ListCollections(ctx context.Context) ([]string, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.collections), nil
}

func (f *fakeGateway) CreateCollection(ctx context.Context, name string, vectorSize int, distance domain.Distance) error {
	f.record("create")
	if f.createErr != nil {
		return f.createErr
	}
	f.collections = append(f.collections, name)
	return nil
}

func (f *fakeGateway) DeleteCollection(ctx context.Context, name string) error {
	f.record("delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.collections = slices.DeleteFunc(f.collections, func(n string) bool { return n == name })
	return nil
}

func (f *fakeGateway) CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error) {
	f.record("info")
	if f.infoErr != nil {
		return domain.CollectionInfo{}, f.infoErr
	}
	info := f.info
	info.Name = name
	return info, nil
}

func (f *fakeGateway) AddVector(ctx context.Context, collection, chunk string, payloads []domain.Payload) error {
	f.record("add")
	f.lastAdd = payloads
	return f.addErr
}

func (f *fakeGateway) UploadFile(ctx context.Context, r gateway.UploadRequest) error {
	f.record("upload")
	f.lastUp = r
	if r.Content != nil {
		data, _ := io.ReadAll(r.Content)
		f.upData = string(data)
	}
	return f.uploadErr
}

func (f *fakeGateway) Search(ctx context.Context, r gateway.SearchRequest) ([]domain.SearchResult, error) {
	f.record("search")
	f.lastSrch = r
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeGateway) Chat(ctx context.Context, r gateway.ChatRequest) (gateway.ChatReply, error) {
	f.record("chat")
	f.lastChat = r
	if f.chatErr != nil {
		return gateway.ChatReply{}, f.chatErr
	}
	return f.reply, nil
}
