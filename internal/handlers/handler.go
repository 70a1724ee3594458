// Package handlers drives a studio session from Telegram: photos fill the
// image slots, an inline keyboard edits the shot settings and buttons run
// the model operations.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"dugo-banana-studio/internal/i18n"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/mediagroup"
	"dugo-banana-studio/internal/prompt"
	"dugo-banana-studio/internal/studio"
	"dugo-banana-studio/internal/telegram"
)

// Messenger is the part of the Telegram client the handler uses.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhoto(chatID int64, img media.Image, caption string) error
	SendDocument(chatID int64, img media.Image, filename string) error
	DownloadFile(ctx context.Context, fileID string) (media.Image, error)
}

type Options struct {
	Telegram Messenger
	Studio   *studio.Service
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	studio     *studio.Service
	logger     *slog.Logger
	states     *stateStore
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:     opts.Telegram,
		studio: opts.Studio,
		logger: logger,
		states: newStateStore(),
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

// Prune forgets wizard state and studio sessions idle for longer than maxIdle.
func (h *Handler) Prune(maxIdle time.Duration) {
	h.states.Prune(maxIdle)
	h.studio.PruneIdle(maxIdle)
}

func sessionID(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID
	lang := i18n.Match(msg.From.LanguageCode)
	h.studio.Ensure(sessionID(chatID, userID))

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, lang, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, lang, msg)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, lang, msg.Text)
	}

	return nil
}

// HandleMediaGroup treats an album as product photo plus style reference.
// Extra photos are ignored.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	lang := i18n.Match(group.LanguageCode)
	id := sessionID(group.ChatID, group.UserID)
	h.studio.Ensure(id)

	fileIDs := group.FileIDs
	if len(fileIDs) > 2 {
		fileIDs = fileIDs[:2]
	}

	images := make([]media.Image, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			img, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("media group download failed", "err", err)
		_ = h.tg.SendText(group.ChatID, "❌ "+i18n.Message(lang, err))
		return
	}

	if _, err := h.studio.SetProductImage(id, images[0]); err != nil {
		_ = h.tg.SendText(group.ChatID, "❌ "+i18n.Message(lang, err))
		return
	}
	if len(images) > 1 {
		if _, err := h.studio.SetStyleImage(id, images[1]); err != nil {
			_ = h.tg.SendText(group.ChatID, "❌ "+i18n.Message(lang, err))
			return
		}
	}
	if caption := strings.TrimSpace(group.Caption); caption != "" {
		_, _ = h.studio.SetNegative(id, caption)
	}

	h.states.Update(group.ChatID, group.UserID, func(st *UIState) {
		st.Awaiting = awaitNone
		st.Menu = menuMain
	})
	if err := h.renderWizard(group.ChatID, group.UserID, 0, false); err != nil {
		h.logger.Error("wizard render failed", "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, lang language.Tag, msg *tgbotapi.Message) error {
	id := sessionID(chatID, userID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "studio":
		h.states.Reset(chatID, userID)
		return h.renderWizard(chatID, userID, 0, false)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "style":
		return h.await(chatID, userID, awaitStyle, "🎨 Send the style reference photo.")
	case "bg":
		return h.await(chatID, userID, awaitBackground, "🖼 Send the custom background photo.")
	case "mask":
		return h.await(chatID, userID, awaitMask, "⬛ Send a black and white mask. White marks the product.")
	case "keywords":
		if args == "" {
			return h.await(chatID, userID, awaitKeywords, "✍️ Send the creative keywords.")
		}
		return h.setKeywords(chatID, userID, lang, args)
	case "negative":
		if args == "" {
			return h.await(chatID, userID, awaitNegative, "🚫 Send what the image must not contain.")
		}
		return h.setNegative(chatID, userID, lang, args)
	case "prompt":
		if args == "" {
			return h.sendPrompt(ctx, chatID, userID, lang)
		}
		return h.setPrompt(chatID, userID, lang, args)
	case "preset":
		if args == "" {
			return h.await(chatID, userID, awaitPresetName, "💾 Send a name for the preset.")
		}
		return h.savePreset(ctx, chatID, userID, lang, args)
	case "download":
		return h.download(chatID, userID, lang, args)
	case "cancel":
		h.states.Update(chatID, userID, func(st *UIState) { st.Awaiting = awaitNone })
		return h.tg.SendText(chatID, "✅ Cancelled.")
	case "reset":
		if _, err := h.studio.Reset(id); err != nil {
			return h.sendError(chatID, lang, err)
		}
		h.states.Reset(chatID, userID)
		return h.renderWizard(chatID, userID, 0, false)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, lang language.Tag, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	st := h.states.Get(chatID, userID)
	switch st.Awaiting {
	case awaitKeywords:
		return h.setKeywords(chatID, userID, lang, text)
	case awaitNegative:
		return h.setNegative(chatID, userID, lang, text)
	case awaitPrompt:
		return h.setPrompt(chatID, userID, lang, text)
	case awaitPresetName:
		return h.savePreset(ctx, chatID, userID, lang, text)
	default:
		return h.tg.SendText(chatID, "📷 Send a product photo, or use /studio to open the settings.")
	}
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, lang language.Tag, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			LanguageCode: msg.From.LanguageCode,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	h.tg.SendTyping(chatID)
	img, err := h.tg.DownloadFile(ctx, photo.FileID)
	if err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.sendError(chatID, lang, err)
	}

	id := sessionID(chatID, userID)
	target := h.states.Get(chatID, userID).Awaiting
	if !target.wantsPhoto() {
		target = awaitProduct
	}

	switch target {
	case awaitStyle:
		_, err = h.studio.SetStyleImage(id, img)
	case awaitBackground:
		_, err = h.studio.SetCustomBackground(id, img)
	case awaitMask:
		_, err = h.studio.SetMask(id, img)
	default:
		_, err = h.studio.SetProductImage(id, img)
	}
	if err != nil {
		return h.sendError(chatID, lang, err)
	}

	h.states.Update(chatID, userID, func(st *UIState) {
		st.Awaiting = awaitNone
		st.Menu = menuMain
	})
	return h.renderWizard(chatID, userID, 0, false)
}

func (h *Handler) await(chatID, userID int64, what awaiting, text string) error {
	h.states.Update(chatID, userID, func(st *UIState) { st.Awaiting = what })
	return h.tg.SendText(chatID, text+" (/cancel)")
}

func (h *Handler) setKeywords(chatID, userID int64, lang language.Tag, keywords string) error {
	_, err := h.studio.SetCreative(sessionID(chatID, userID), prompt.CreativeMode{Enabled: true, Keywords: keywords})
	return h.afterInput(chatID, userID, lang, err)
}

func (h *Handler) setNegative(chatID, userID int64, lang language.Tag, negative string) error {
	_, err := h.studio.SetNegative(sessionID(chatID, userID), negative)
	return h.afterInput(chatID, userID, lang, err)
}

func (h *Handler) setPrompt(chatID, userID int64, lang language.Tag, positive string) error {
	_, err := h.studio.SetPrompt(sessionID(chatID, userID), positive)
	return h.afterInput(chatID, userID, lang, err)
}

func (h *Handler) savePreset(ctx context.Context, chatID, userID int64, lang language.Tag, name string) error {
	p, err := h.studio.SavePreset(ctx, sessionID(chatID, userID), name)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	h.states.Update(chatID, userID, func(st *UIState) { st.Awaiting = awaitNone })
	return h.tg.SendText(chatID, fmt.Sprintf("💾 Preset %q saved.", p.Name))
}

func (h *Handler) afterInput(chatID, userID int64, lang language.Tag, err error) error {
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	h.states.Update(chatID, userID, func(st *UIState) { st.Awaiting = awaitNone })
	return h.renderWizard(chatID, userID, 0, false)
}

// sendPrompt runs a pending rebuild first so the text matches the settings.
func (h *Handler) sendPrompt(ctx context.Context, chatID, userID int64, lang language.Tag) error {
	id := sessionID(chatID, userID)
	snap, err := h.studio.Get(id)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	if h.studio.PromptPending(id) {
		h.tg.SendTyping(chatID)
		if snap, err = h.studio.RefreshPrompt(ctx, id); err != nil {
			return h.sendError(chatID, lang, err)
		}
	}

	text := strings.TrimSpace(snap.Prompt.Positive)
	if text == "" {
		text = "(empty)"
	}
	if neg := strings.TrimSpace(snap.Prompt.Negative); neg != "" {
		text += "\n\n🚫 " + neg
	}
	return h.tg.SendText(chatID, "📄 "+text)
}

func (h *Handler) download(chatID, userID int64, lang language.Tag, arg string) error {
	format, err := media.ParseFormat(arg)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	out, err := h.studio.Export(sessionID(chatID, userID), format, media.DefaultQuality)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	return h.tg.SendDocument(chatID, out, "dugo-banana"+format.Extension())
}

func (h *Handler) sendError(chatID int64, lang language.Tag, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	h.logger.Warn("operation failed", "chat", chatID, "err", err)
	return h.tg.SendText(chatID, "❌ "+i18n.Message(lang, err))
}

const helpText = "🍌 Dugo Banana Studio\n\n" +
	"Send a product photo, then tune the shot with the buttons.\n" +
	"An album of two photos sets the product and a style reference.\n\n" +
	"/studio - open the settings\n" +
	"/style - send a style reference photo\n" +
	"/bg - send a custom background\n" +
	"/mask - send a hand-painted mask\n" +
	"/keywords <text> - creative mode keywords\n" +
	"/negative <text> - things to avoid\n" +
	"/prompt [text] - show or replace the prompt\n" +
	"/preset <name> - save the current settings\n" +
	"/download [png|jpeg|webp] - export the result\n" +
	"/reset - start over\n" +
	"/cancel - stop waiting for input"
