package service

import (
	"Jarvis_chat/backend/go/internal/chat_service/store"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/internal/websearch"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeCompleter struct {
	reply string
	err   error
	got   llm.CompletionRequest
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	f.got = req
	return f.reply, f.err
}

type fakeSearcher struct {
	results []websearch.Result
	err     error
}

func (f fakeSearcher) Search(context.Context, string, int) ([]websearch.Result, error) {
	return f.results, f.err
}

type fakeMemory string

func (m fakeMemory) GetMemoryContext(context.Context, uint, string) string { return string(m) }

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []models.ExtractionJob
}

func (d *recordingDispatcher) Dispatch(job models.ExtractionJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
}

func newChat(c *fakeCompleter, s websearch.Searcher, mem MemoryProvider, d JobDispatcher, st ConversationStore) *ChatService {
	return NewChatService(c, s, mem, d, st, ChatOptions{Model: "gpt-4o-mini", MaxTokens: 1500, Temperature: 0.7}, logger.New("test", "", ""))
}

func TestRespondBuildsPromptAndDispatches(t *testing.T) {
	c := &fakeCompleter{reply: "Hi Ana!"}
	d := &recordingDispatcher{}
	svc := newChat(c, nil, fakeMemory("## User Information:\n**Facts**: name: Ana\n\n"), d, nil)

	resp, err := svc.Respond(context.Background(), 5, ChatRequest{
		Message: "hello",
		History: []models.ChatMessage{
			{Role: models.SpeakerUser, Content: "earlier question"},
			{Role: "bot", Content: "earlier answer"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ana!", resp.Response)

	msgs := c.got.Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, models.SpeakerSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, normalSystemPrompt+"\n\n## User Information:"))
	assert.True(t, strings.HasSuffix(msgs[0].Content, memoryInstruction))
	assert.Equal(t, models.SpeakerAssistant, msgs[2].Role)
	assert.Equal(t, models.ChatMessage{Role: models.SpeakerUser, Content: "hello"}, msgs[3])
	assert.Equal(t, 1500, c.got.MaxTokens)
	assert.Equal(t, float32(0.7), c.got.Temperature)

	require.Len(t, d.jobs, 1)
	assert.Equal(t, uint(5), d.jobs[0].UserID)
	assert.Equal(t, "hello", d.jobs[0].Message)
	assert.Equal(t, models.SpeakerUser, d.jobs[0].Role)
}

func TestRespondValidation(t *testing.T) {
	c := &fakeCompleter{reply: "x"}
	d := &recordingDispatcher{}
	_, err := newChat(c, nil, nil, d, nil).Respond(context.Background(), 1, ChatRequest{})
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Zero(t, c.calls)
	assert.Empty(t, d.jobs)
}

func TestRespondSearchFailureDegrades(t *testing.T) {
	c := &fakeCompleter{reply: "answer"}
	svc := newChat(c, fakeSearcher{err: errors.New("timeout")}, nil, &recordingDispatcher{}, nil)

	resp, err := svc.Respond(context.Background(), 1, ChatRequest{Message: "news today", SearchMode: true})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Response)
	last := c.got.Messages[len(c.got.Messages)-1].Content
	assert.Equal(t, "news today\n\n🔍 **WEB SEARCH**: Currently unavailable. Please provide information based on general knowledge.", last)
	// 没有记忆时使用原始模板
	assert.Equal(t, normalSystemPrompt, c.got.Messages[0].Content)
}

func TestRespondCompletionFailureAndEmptyReply(t *testing.T) {
	d := &recordingDispatcher{}
	_, err := newChat(&fakeCompleter{err: errors.New("quota exceeded")}, nil, nil, d, nil).
		Respond(context.Background(), 1, ChatRequest{Message: "hi"})
	var ce *CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "LLM API Error: quota exceeded", ce.Error())
	assert.Empty(t, d.jobs)

	resp, err := newChat(&fakeCompleter{reply: "  "}, nil, nil, d, nil).
		Respond(context.Background(), 1, ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, resp.Response)
}

func TestRespondCanvasWithFilesOnly(t *testing.T) {
	c := &fakeCompleter{reply: "ok"}
	_, err := newChat(c, nil, nil, &recordingDispatcher{}, nil).Respond(context.Background(), 1, ChatRequest{
		CanvasMode: true,
		Files:      []models.FileAttachment{{Name: "a.png", Type: "image/png", Size: 10, Content: "base64"}},
	})
	require.NoError(t, err)
	assert.Equal(t, canvasSystemPrompt, c.got.Messages[0].Content)
	assert.Equal(t, "Please analyze the attached files.\n\nImage: a.png (image data provided)", c.got.Messages[1].Content)
}

func newChatStore(t *testing.T) *store.Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	st := store.NewStore(db)
	require.NoError(t, st.AutoMigrate())
	return st
}

func TestRespondPersistsToOwnedChat(t *testing.T) {
	st := newChatStore(t)

	chat := &models.Chat{UserID: 3}
	require.NoError(t, st.CreateChat(context.Background(), chat))

	c := &fakeCompleter{reply: "stored answer"}
	d := &recordingDispatcher{}
	svc := newChat(c, nil, nil, d, st)

	resp, err := svc.Respond(context.Background(), 3, ChatRequest{Message: "remember this", ChatID: chat.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.MessageID)

	msgs, err := st.ListMessages(context.Background(), 3, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SpeakerUser, msgs[0].Role)
	assert.Equal(t, "stored answer", msgs[1].Content)

	require.Len(t, d.jobs, 1)
	assert.Equal(t, chat.ID, d.jobs[0].ChatID)
	assert.Equal(t, msgs[0].ID, d.jobs[0].MessageID)

	// 别人的会话
	_, err = svc.Respond(context.Background(), 4, ChatRequest{Message: "hi", ChatID: chat.ID})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRespondCompletionFailureLeavesChatUntouched(t *testing.T) {
	st := newChatStore(t)
	ctx := context.Background()

	chat := &models.Chat{UserID: 3}
	require.NoError(t, st.CreateChat(ctx, chat))

	d := &recordingDispatcher{}
	_, err := newChat(&fakeCompleter{err: errors.New("upstream down")}, nil, nil, d, st).
		Respond(ctx, 3, ChatRequest{Message: "remember this", ChatID: chat.ID})
	var ce *CompletionError
	require.ErrorAs(t, err, &ce)

	msgs, err := st.ListMessages(ctx, 3, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	got, err := st.GetChat(ctx, 3, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MessageCount)
	assert.Nil(t, got.LastMessageAt)
	assert.Empty(t, d.jobs)
}
