package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragc/internal/app"
	"ragc/internal/domain"
	"ragc/internal/gateway"
	"ragc/internal/render"
)

type stubGateway struct {
	mu          sync.Mutex
	collections []string
	results     []domain.SearchResult
	reply       gateway.ChatReply
	chatErr     error
	calls       map[string]int
}

func (s *stubGateway) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
}

func (s *stubGateway) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubGateway) ListCollections(context.Context) ([]string, error) {
	s.hit("list")
	return append([]string(nil), s.collections...), nil
}

func (s *stubGateway) CreateCollection(_ context.Context, name string, _ int, _ domain.Distance) error {
	s.hit("create")
	s.collections = append(s.collections, name)
	return nil
}

func (s *stubGateway) DeleteCollection(_ context.Context, name string) error {
	s.hit("delete")
	out := s.collections[:0]
	for _, c := range s.collections {
		if c != name {
			out = append(out, c)
		}
	}
	s.collections = out
	return nil
}

func (s *stubGateway) CollectionInfo(_ context.Context, name string) (domain.CollectionInfo, error) {
	s.hit("info")
	return domain.CollectionInfo{Name: name, VectorsCount: 3, VectorSize: 4, Distance: domain.DistanceCosine}, nil
}

func (s *stubGateway) AddVector(context.Context, string, string, []domain.Payload) error {
	s.hit("add")
	return nil
}

func (s *stubGateway) UploadFile(context.Context, gateway.UploadRequest) error {
	s.hit("upload")
	return nil
}

func (s *stubGateway) Search(context.Context, gateway.SearchRequest) ([]domain.SearchResult, error) {
	s.hit("search")
	return s.results, nil
}

func (s *stubGateway) Chat(context.Context, gateway.ChatRequest) (gateway.ChatReply, error) {
	s.hit("chat")
	return s.reply, s.chatErr
}

func newTestModel(t *testing.T, gw *stubGateway, welcome bool) Model {
	t.Helper()
	ctrl := app.NewController(gw, app.Defaults{ChatCollection: "default_collection", SearchLimit: 10, ChunkSize: 1000, ChunkOverlap: 200})
	state := app.NewState(time.Millisecond)
	m := New(context.Background(), ctrl, state, Options{
		APIURL:       "http://localhost:8000",
		Welcome:      welcome,
		VectorSize:   1024,
		Distance:     domain.DistanceCosine,
		ChunkSize:    1000,
		ChunkOverlap: 200,
	})
	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drain runs cmd and feeds every settled delta back into the model.
func drain(m Model, cmd tea.Cmd) Model {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case deltaMsg:
			var next tea.Cmd
			m, next = send(m, msg)
			queue = append(queue, next)
		}
	}
	return m
}

func typeText(m Model, s string) Model {
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestInitLoadsCollections(t *testing.T) {
	gw := &stubGateway{collections: []string{"docs", "notes"}}
	m := newTestModel(t, gw, false)

	m = drain(m, m.Init())
	assert.Equal(t, []string{"docs", "notes"}, m.state.Registry.Names())
	assert.Equal(t, "docs", m.state.Registry.Selected(app.SelectSearch))
	assert.False(t, m.state.Busy())
	assert.Contains(t, m.View(), "docs")
}

func TestWelcomeMessage(t *testing.T) {
	m := newTestModel(t, &stubGateway{}, true)
	msgs := m.state.Transcript.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, app.WelcomeText, msgs[0].Text)

	m = newTestModel(t, &stubGateway{}, false)
	assert.Zero(t, m.state.Transcript.Len())
}

func TestSearchFlow(t *testing.T) {
	gw := &stubGateway{
		collections: []string{"docs"},
		results:     []domain.SearchResult{{Score: 0.873, Payload: domain.Payload{"text": "channels are typed conduits"}}},
	}
	m := newTestModel(t, gw, false)
	m = drain(m, m.Init())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyF3})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "channels")
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, app.PhaseInFlight, m.state.Phase(app.ActionSearch))

	m = drain(m, cmd)
	assert.Equal(t, app.PhaseSucceeded, m.state.Phase(app.ActionSearch))
	assert.Equal(t, render.ResultsLoaded, m.state.Results.Status)
	assert.Contains(t, m.View(), "87.30%")
}

func TestSearchIgnoresReentry(t *testing.T) {
	gw := &stubGateway{collections: []string{"docs"}}
	m := newTestModel(t, gw, false)
	m = drain(m, m.Init())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyF3})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "q")
	m, first := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, second := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, second)

	m = drain(m, first)
	assert.Equal(t, 1, gw.count("search"))
	assert.Equal(t, render.ResultsEmpty, m.state.Results.Status)
}

func TestChatShowsPromptBeforeReply(t *testing.T) {
	gw := &stubGateway{reply: gateway.ChatReply{Text: "Goroutines are lightweight threads.", Present: true}}
	m := newTestModel(t, gw, false)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyF4})
	m = typeText(m, "what are goroutines?")
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})

	msgs := m.state.Transcript.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.OriginUser, msgs[0].Origin)
	assert.Equal(t, "what are goroutines?", msgs[0].Text)
	assert.Empty(t, m.inputs[inPrompt].Value())
	assert.Zero(t, gw.count("chat"))

	m = drain(m, cmd)
	msgs = m.state.Transcript.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.OriginAssistant, msgs[1].Origin)
	assert.Equal(t, "Goroutines are lightweight threads.", msgs[1].Text)
}

func TestTranscriptFollowsNewestMessage(t *testing.T) {
	gw := &stubGateway{reply: gateway.ChatReply{Text: "Channels connect goroutines.", Present: true}}
	m := newTestModel(t, gw, false)
	m, _ = send(m, tea.WindowSizeMsg{Width: 80, Height: 14})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyF4})

	for i := 0; i < 6; i++ {
		m = typeText(m, fmt.Sprintf("question %d", i))
		var cmd tea.Cmd
		m, cmd = send(m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.True(t, m.transcript.AtBottom(), "after sending turn %d", i)
		m = drain(m, cmd)
		assert.True(t, m.transcript.AtBottom(), "after reply to turn %d", i)
	}

	require.Equal(t, 12, m.state.Transcript.Len())
	assert.Greater(t, m.transcript.TotalLineCount(), m.transcript.Height)
	assert.Positive(t, m.transcript.YOffset)
}

func TestChatFailureAppendsApology(t *testing.T) {
	gw := &stubGateway{chatErr: errors.New("connection refused")}
	m := newTestModel(t, gw, false)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyF4})
	m = typeText(m, "hello")
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(m, cmd)

	msgs := m.state.Transcript.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, app.ApologyText, msgs[1].Text)
	assert.Equal(t, app.PhaseFailed, m.state.Phase(app.ActionChat))
}

func TestEmptyPromptSendsNothing(t *testing.T) {
	gw := &stubGateway{}
	m := newTestModel(t, gw, false)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyF4})
	m = typeText(m, "   ")
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, m.state.Transcript.Len())
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	gw := &stubGateway{collections: []string{"docs", "notes"}}
	m := newTestModel(t, gw, false)
	m = drain(m, m.Init())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Equal(t, "docs", m.confirm)
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
	assert.Empty(t, m.confirm)
	assert.Zero(t, gw.count("delete"))

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Equal(t, "notes", m.confirm)
	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m = drain(m, cmd)

	assert.Equal(t, 1, gw.count("delete"))
	assert.Equal(t, []string{"docs"}, m.state.Registry.Names())
	assert.Equal(t, 0, m.cursor)
}

func TestCreateRefreshesAndResetsForm(t *testing.T) {
	gw := &stubGateway{}
	m := newTestModel(t, gw, false)
	m = drain(m, m.Init())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "docs")
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(m, cmd)

	assert.Equal(t, 1, gw.count("create"))
	assert.Equal(t, []string{"docs"}, m.state.Registry.Names())
	assert.Empty(t, m.inputs[inCreateName].Value())
	assert.Equal(t, "1024", m.inputs[inCreateSize].Value())
}

func TestInfoShowsCollection(t *testing.T) {
	gw := &stubGateway{collections: []string{"docs"}}
	m := newTestModel(t, gw, false)
	m = drain(m, m.Init())

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(m, cmd)
	require.NotNil(t, m.state.Info)
	assert.Equal(t, "docs", m.state.Info.Name)
	assert.Contains(t, m.View(), "COSINE")
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(t, &stubGateway{}, false)
	_, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
