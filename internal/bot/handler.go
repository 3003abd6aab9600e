package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/library"
	"github.com/user/vidnest/internal/metrics"
	"github.com/user/vidnest/internal/model"
)

// latestLimit is the number of videos /latest lists
const latestLimit = 5

// Messenger sends replies to a chat
type Messenger interface {
	SendMessage(chatID int64, text string) error
	SendMarkdown(chatID int64, text string) error
}

// Handler turns Telegram messages into library imports
type Handler struct {
	library   *library.Service
	accounts  *library.Accounts
	telegram  Messenger
	startTime time.Time
}

// NewHandler creates a new share bot handler
func NewHandler(lib *library.Service, accounts *library.Accounts, telegram Messenger) *Handler {
	return &Handler{
		library:   lib,
		accounts:  accounts,
		telegram:  telegram,
		startTime: time.Now(),
	}
}

// Run handles updates until the channel closes or ctx is cancelled
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes an incoming Telegram update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	msg := update.Message
	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	h.handleShare(ctx, msg.Chat.ID, text)
}

// handleCommand routes commands to their respective handlers
func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	log.Info().
		Int64("chatID", chatID).
		Str("command", command).
		Msg("Received command")

	switch command {
	case "start", "help":
		h.handleStart(chatID)
	case "link":
		h.handleLink(ctx, chatID, args)
	case "unlink":
		h.handleUnlink(ctx, chatID)
	case "latest":
		h.handleLatest(ctx, chatID)
	case "status":
		h.handleStatus(ctx, chatID)
	default:
		h.sendError(chatID, "Unknown command. Use /help to see available commands.")
	}
}

// handleStart handles /start and /help
func (h *Handler) handleStart(chatID int64) {
	helpText := `🎬 *VidNest Share Bot*

Send me any video link and I will save it to your library\.

*Commands:*
/link CODE \- Connect this chat to your account \(get the code in your profile\)
/unlink \- Disconnect this chat
/latest \- Show your five newest saves
/status \- Show library and bot status`

	if err := h.telegram.SendMarkdown(chatID, helpText); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send help message")
	}
}

// handleLink binds the chat to the account that issued the code
func (h *Handler) handleLink(ctx context.Context, chatID int64, code string) {
	if code == "" {
		h.sendError(chatID, "Please provide your link code. Example: /link AB12CD34")
		return
	}

	user, err := h.accounts.LinkTelegram(ctx, code, chatID)
	switch {
	case errors.Is(err, library.ErrInvalidToken):
		h.sendError(chatID, "That code is invalid or has expired. Create a new one in your profile.")
		return
	case errors.Is(err, library.ErrChatLinked):
		h.sendError(chatID, "This chat is linked to another account. Use /unlink first.")
		return
	case err != nil:
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to link chat")
		h.sendError(chatID, "Failed to link this chat. Please try again.")
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ Linked to %s. Send me a link to save it.", user.Name))
}

// handleUnlink removes the chat binding
func (h *Handler) handleUnlink(ctx context.Context, chatID int64) {
	if err := h.accounts.UnlinkTelegram(ctx, chatID); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to unlink chat")
		h.sendError(chatID, "Failed to unlink this chat. Please try again.")
		return
	}
	h.reply(chatID, "✅ This chat is no longer linked.")
}

// handleLatest lists the newest saves of the linked user
func (h *Handler) handleLatest(ctx context.Context, chatID int64) {
	user, ok := h.linkedUser(ctx, chatID)
	if !ok {
		return
	}

	page, err := h.library.List(ctx, user.ID, library.ListQuery{Limit: latestLimit})
	if err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to get latest videos")
		h.sendError(chatID, "Failed to get latest videos. Please try again.")
		return
	}

	if len(page.Videos) == 0 {
		h.reply(chatID, "📭 Your library is empty. Send me a link to save it.")
		return
	}

	if err := h.telegram.SendMarkdown(chatID, FormatVideoList("Latest saves", page.Videos)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send latest videos")
	}
}

// handleStatus shows the library size and bot uptime
func (h *Handler) handleStatus(ctx context.Context, chatID int64) {
	user, ok := h.linkedUser(ctx, chatID)
	if !ok {
		return
	}

	total := int64(-1)
	if page, err := h.library.List(ctx, user.ID, library.ListQuery{Limit: 1}); err != nil {
		log.Error().Err(err).Msg("Failed to count videos")
	} else {
		total = page.Total
	}

	lines := []string{
		"📊 *Status*\n",
		fmt.Sprintf("🎬 Saved videos: %s", EscapeMarkdown(fmt.Sprint(total))),
		fmt.Sprintf("⏱ Uptime: %s", formatUptime(time.Since(h.startTime))),
	}
	if err := h.telegram.SendMarkdown(chatID, strings.Join(lines, "\n")); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send status")
	}
}

// handleShare imports the first link of a plain message
func (h *Handler) handleShare(ctx context.Context, chatID int64, text string) {
	sharedURL := library.ExtractSharedURL(library.ShareInput{Text: text})
	if sharedURL == "" {
		metrics.RecordBotMessage("ignored")
		h.reply(chatID, "Send me a video link to save it. Use /help for commands.")
		return
	}

	user, ok := h.linkedUser(ctx, chatID)
	if !ok {
		metrics.RecordBotMessage("unlinked")
		return
	}

	video, err := h.library.Import(ctx, user.ID, library.ImportInput{URL: sharedURL})
	var dup *library.DuplicateError
	switch {
	case errors.As(err, &dup):
		metrics.RecordBotMessage("duplicate")
		h.reply(chatID, "📌 Already saved in your library.")
		return
	case err != nil:
		metrics.RecordBotMessage("error")
		log.Error().Err(err).Int64("chatID", chatID).Str("url", sharedURL).Msg("Failed to import shared link")
		h.sendError(chatID, "Failed to save this link. Please try again.")
		return
	}

	metrics.RecordBotMessage("saved")
	if err := h.telegram.SendMarkdown(chatID, FormatSavedVideo(video)); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send save confirmation")
	}
}

// linkedUser returns the account bound to the chat, prompting to link otherwise
func (h *Handler) linkedUser(ctx context.Context, chatID int64) (*model.User, bool) {
	user, err := h.accounts.UserForChat(ctx, chatID)
	switch {
	case errors.Is(err, library.ErrNotFound):
		h.reply(chatID, "🔗 This chat is not linked yet. Create a code in your VidNest profile and send /link CODE.")
		return nil, false
	case err != nil:
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to look up linked user")
		h.sendError(chatID, "Something went wrong. Please try again.")
		return nil, false
	}
	return user, true
}

func (h *Handler) reply(chatID int64, text string) {
	if err := h.telegram.SendMessage(chatID, text); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send message")
	}
}

// sendError sends an error message to a chat
func (h *Handler) sendError(chatID int64, message string) {
	h.reply(chatID, "❌ "+message)
}

// formatUptime formats a duration into a human-readable string
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
