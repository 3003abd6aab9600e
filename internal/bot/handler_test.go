package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/vidnest/internal/auth"
	"github.com/user/vidnest/internal/config"
	"github.com/user/vidnest/internal/library"
	mailer "github.com/user/vidnest/internal/mail"
	"github.com/user/vidnest/internal/metadata"
	"github.com/user/vidnest/internal/store"
)

type sent struct {
	chatID   int64
	text     string
	markdown bool
}

// MockMessenger records outgoing messages
type MockMessenger struct {
	messages []sent
}

func (m *MockMessenger) SendMessage(chatID int64, text string) error {
	m.messages = append(m.messages, sent{chatID: chatID, text: text})
	return nil
}

func (m *MockMessenger) SendMarkdown(chatID int64, text string) error {
	m.messages = append(m.messages, sent{chatID: chatID, text: text, markdown: true})
	return nil
}

func (m *MockMessenger) last(t *testing.T) sent {
	t.Helper()
	require.NotEmpty(t, m.messages)
	return m.messages[len(m.messages)-1]
}

type botEnv struct {
	handler   *Handler
	messenger *MockMessenger
	accounts  *library.Accounts
	userID    uint
}

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()

	st, err := store.Open(&config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	accounts := library.NewAccounts(st, auth.NewTokenManager("0123456789abcdef", time.Hour), mailer.LogSender{}, library.AccountsConfig{
		ResetTokenTTL: time.Hour,
		LinkCodeTTL:   time.Hour,
	})
	session, err := accounts.Register(context.Background(), library.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	messenger := &MockMessenger{}
	handler := NewHandler(library.NewService(st, metadata.NewPipeline(nil)), accounts, messenger)

	return &botEnv{handler: handler, messenger: messenger, accounts: accounts, userID: session.User.ID}
}

func message(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{Message: msg}
}

func (e *botEnv) send(t *testing.T, chatID int64, text string) sent {
	t.Helper()
	e.handler.HandleUpdate(context.Background(), message(chatID, text))
	return e.messenger.last(t)
}

func (e *botEnv) link(t *testing.T, chatID int64) {
	t.Helper()
	code, err := e.accounts.CreateLinkCode(context.Background(), e.userID)
	require.NoError(t, err)
	reply := e.send(t, chatID, "/link "+code.Code)
	require.Contains(t, reply.text, "Linked to Alice")
}

func TestHelp(t *testing.T) {
	env := newBotEnv(t)

	reply := env.send(t, 1, "/start")
	assert.True(t, reply.markdown)
	assert.Contains(t, reply.text, "/link CODE")

	reply = env.send(t, 1, "/dance")
	assert.Contains(t, reply.text, "Unknown command")
}

func TestShareRequiresLink(t *testing.T) {
	env := newBotEnv(t)

	reply := env.send(t, 42, "watch https://youtu.be/abc123")
	assert.Contains(t, reply.text, "not linked")

	reply = env.send(t, 42, "/link WRONG123")
	assert.Contains(t, reply.text, "invalid or has expired")

	reply = env.send(t, 42, "/link")
	assert.Contains(t, reply.text, "provide your link code")
}

func TestShareImportsLink(t *testing.T) {
	env := newBotEnv(t)
	env.link(t, 42)

	reply := env.send(t, 42, "check this out https://youtu.be/abc123!")
	assert.True(t, reply.markdown)
	assert.Contains(t, reply.text, "YouTube")
	assert.Contains(t, reply.text, EscapeMarkdown("https://youtu.be/abc123"))

	reply = env.send(t, 42, "https://www.youtube.com/watch?v=abc123&si=xyz")
	assert.Contains(t, reply.text, "Already saved")

	reply = env.send(t, 42, "hello there")
	assert.Contains(t, reply.text, "Send me a video link")

	reply = env.send(t, 42, "/latest")
	assert.True(t, reply.markdown)
	assert.Contains(t, reply.text, "Latest saves")
	assert.Contains(t, reply.text, "1\\.")

	reply = env.send(t, 42, "/status")
	assert.Contains(t, reply.text, "Saved videos: 1")
}

func TestUnlink(t *testing.T) {
	env := newBotEnv(t)
	env.link(t, 7)

	reply := env.send(t, 7, "/unlink")
	assert.Contains(t, reply.text, "no longer linked")

	reply = env.send(t, 7, "/latest")
	assert.Contains(t, reply.text, "not linked")
}

func TestChatLinkedToOtherAccount(t *testing.T) {
	env := newBotEnv(t)
	env.link(t, 9)

	bob, err := env.accounts.Register(context.Background(), library.RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	code, err := env.accounts.CreateLinkCode(context.Background(), bob.User.ID)
	require.NoError(t, err)

	reply := env.send(t, 9, "/link "+code.Code)
	assert.Contains(t, reply.text, "linked to another account")
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	env := newBotEnv(t)

	updates := make(chan tgbotapi.Update, 1)
	updates <- message(3, "/help")
	close(updates)

	done := make(chan struct{})
	go func() {
		env.handler.Run(context.Background(), updates)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after the channel closed")
	}
	assert.Len(t, env.messenger.messages, 1)
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h 3m"},
		{50 * time.Hour, "2d 2h 0m"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.expected {
			t.Errorf("formatUptime(%v) = %v, want %v", tt.d, got, tt.expected)
		}
	}
}
