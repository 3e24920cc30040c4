package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := NewStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func strPtr(s string) *string { return &s }

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "a@example.com", Username: "a"}))
	err := s.CreateUser(ctx, &models.User{Email: "a@example.com", Username: "b"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	u, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", u.Username)

	_, err = s.GetUserByEmail(ctx, "missing@example.com")
	assert.True(t, IsNotFound(err))
}

func TestChatsAreScopedAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := &models.Chat{UserID: 1, Title: "older"}
	newer := &models.Chat{UserID: 1, Title: "newer"}
	empty := &models.Chat{UserID: 1}
	other := &models.Chat{UserID: 2, Title: "someone else"}
	for _, c := range []*models.Chat{older, newer, empty, other} {
		require.NoError(t, s.CreateChat(ctx, c))
	}
	assert.Equal(t, models.DefaultChatTitle, empty.Title)
	assert.Equal(t, models.ChatGeneral, empty.Type)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, s.CreateMessage(ctx, 1, &models.Message{ChatID: older.ID, Role: models.SpeakerUser, Content: "1", CreatedAt: base}))
	require.NoError(t, s.CreateMessage(ctx, 1, &models.Message{ChatID: newer.ID, Role: models.SpeakerUser, Content: "2", CreatedAt: base.Add(time.Minute)}))

	chats, err := s.ListChats(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, []string{newer.ID, older.ID, empty.ID}, []string{chats[0].ID, chats[1].ID, chats[2].ID})

	_, err = s.GetChat(ctx, 2, older.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.ArchiveChat(ctx, 1, empty.ID))
	chats, err = s.ListChats(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
}

func TestChatFolderFilterAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	folder := &models.Folder{UserID: 1, Name: "Work"}
	require.NoError(t, s.CreateFolder(ctx, folder))
	assert.Equal(t, models.DefaultFolderColor, folder.Color)

	inFolder := &models.Chat{UserID: 1, FolderID: &folder.ID}
	loose := &models.Chat{UserID: 1}
	require.NoError(t, s.CreateChat(ctx, inFolder))
	require.NoError(t, s.CreateChat(ctx, loose))

	got, err := s.ListChats(ctx, 1, &FolderFilter{FolderID: folder.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inFolder.ID, got[0].ID)

	got, err = s.ListChats(ctx, 1, &FolderFilter{Root: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, loose.ID, got[0].ID)

	pinned := true
	updated, err := s.UpdateChat(ctx, 1, inFolder.ID, ChatUpdate{Title: strPtr("Renamed"), IsPinned: &pinned, SetFolder: true})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.IsPinned)
	assert.Nil(t, updated.FolderID)

	// 不能把会话移到别人的文件夹
	foreign := &models.Folder{UserID: 2, Name: "Theirs"}
	require.NoError(t, s.CreateFolder(ctx, foreign))
	_, err = s.UpdateChat(ctx, 1, inFolder.ID, ChatUpdate{SetFolder: true, FolderID: &foreign.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateMessageBumpsChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat := &models.Chat{UserID: 1}
	require.NoError(t, s.CreateChat(ctx, chat))

	for _, content := range []string{"hello", "world"} {
		require.NoError(t, s.CreateMessage(ctx, 1, &models.Message{ChatID: chat.ID, Role: models.SpeakerUser, Content: content}))
	}
	// 其他用户不能写入
	err := s.CreateMessage(ctx, 2, &models.Message{ChatID: chat.ID, Role: models.SpeakerUser, Content: "intruder"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetChat(ctx, 1, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.NotNil(t, got.LastMessageAt)

	msgs, err := s.ListMessages(ctx, 1, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)

	_, err = s.ListMessages(ctx, 2, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFolderTreeAndParentChecks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := &models.Folder{UserID: 1, Name: "root", SortOrder: 0}
	require.NoError(t, s.CreateFolder(ctx, root))
	child := &models.Folder{UserID: 1, Name: "child", ParentID: &root.ID, SortOrder: 1}
	require.NoError(t, s.CreateFolder(ctx, child))
	require.NoError(t, s.CreateChat(ctx, &models.Chat{UserID: 1, FolderID: &child.ID}))
	require.NoError(t, s.CreateChat(ctx, &models.Chat{UserID: 1, FolderID: &child.ID}))

	tree, err := s.FolderTree(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].ID)
	require.Len(t, tree[0].Children, 1)
	assert.EqualValues(t, 2, tree[0].Children[0].ChatCount)

	_, err = s.UpdateFolder(ctx, 1, root.ID, FolderUpdate{SetParent: true, ParentID: &child.ID})
	assert.ErrorIs(t, err, ErrInvalidParent)

	updated, err := s.UpdateFolder(ctx, 1, child.ID, FolderUpdate{Name: strPtr("renamed"), SetParent: true})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Nil(t, updated.ParentID)

	require.NoError(t, s.ArchiveFolder(ctx, 1, root.ID))
	folders, err := s.ListFolders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, child.ID, folders[0].ID)
}

func TestCreateMessagesIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat := &models.Chat{UserID: 1}
	require.NoError(t, s.CreateChat(ctx, chat))

	at := time.Now()
	q := &models.Message{ChatID: chat.ID, Role: models.SpeakerUser, Content: "q", CreatedAt: at}
	a := &models.Message{ChatID: chat.ID, Role: models.SpeakerAssistant, Content: "a", CreatedAt: at}
	require.NoError(t, s.CreateMessages(ctx, 1, q, a))
	assert.True(t, a.CreatedAt.After(q.CreatedAt))

	// 第二条重复主键，整批回滚
	dup := &models.Message{ChatID: chat.ID, Role: models.SpeakerUser, Content: "x"}
	err := s.CreateMessages(ctx, 1, dup, &models.Message{ID: q.ID, ChatID: chat.ID, Role: models.SpeakerAssistant, Content: "y"})
	assert.Error(t, err)

	got, err := s.GetChat(ctx, 1, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)

	msgs, err := s.ListMessages(ctx, 1, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q", msgs[0].Content)
	assert.Equal(t, "a", msgs[1].Content)
}
