package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"

	"dugo-banana-studio/internal/i18n"
	"dugo-banana-studio/internal/prompt"
	"dugo-banana-studio/internal/studio"
)

const previewCallbackPrefix = "pv"

const (
	menuMain     = "main"
	menuEnhance  = "enhance"
	menuPresets  = "presets"
	menuRatio    = "ratio"
	menuLight    = "light"
	menuShadow   = "shadow"
	menuAngle    = "angle"
	menuShot     = "shot"
	menuBg       = "bg"
	menuEmphasis = "emphasis"
)

// settingMenu binds one shot setting to its option list.
type settingMenu struct {
	title   string
	options func() []prompt.NamedOption
	current func(prompt.ShotConfig) string
	apply   func(*prompt.ShotConfig, string)
}

var settingMenus = map[string]settingMenu{
	menuRatio: {
		title:   "Ratio",
		options: prompt.AspectRatios,
		current: func(c prompt.ShotConfig) string { return string(c.AspectRatio) },
		apply:   func(c *prompt.ShotConfig, v string) { c.AspectRatio = prompt.AspectRatio(v) },
	},
	menuLight: {
		title:   "Light",
		options: prompt.LightTemperatures,
		current: func(c prompt.ShotConfig) string { return string(c.LightTemperature) },
		apply:   func(c *prompt.ShotConfig, v string) { c.LightTemperature = prompt.LightTemperature(v) },
	},
	menuShadow: {
		title:   "Shadows",
		options: prompt.ShadowIntensities,
		current: func(c prompt.ShotConfig) string { return string(c.ShadowIntensity) },
		apply:   func(c *prompt.ShotConfig, v string) { c.ShadowIntensity = prompt.ShadowIntensity(v) },
	},
	menuAngle: {
		title:   "Angle",
		options: prompt.CameraPerspectives,
		current: func(c prompt.ShotConfig) string { return string(c.CameraPerspective) },
		apply:   func(c *prompt.ShotConfig, v string) { c.CameraPerspective = prompt.CameraPerspective(v) },
	},
	menuShot: {
		title:   "Shot",
		options: prompt.ShotTypes,
		current: func(c prompt.ShotConfig) string { return string(c.ShotType) },
		apply:   func(c *prompt.ShotConfig, v string) { c.ShotType = prompt.ShotType(v) },
	},
	menuBg: {
		title:   "Background",
		options: prompt.BackgroundStyles,
		current: func(c prompt.ShotConfig) string { return string(c.BackgroundStyle) },
		apply:   func(c *prompt.ShotConfig, v string) { c.BackgroundStyle = prompt.BackgroundStyle(v) },
	},
	menuEmphasis: {
		title:   "Emphasis",
		options: prompt.StyleEmphases,
		current: func(c prompt.ShotConfig) string { return string(c.StyleEmphasis) },
		apply:   func(c *prompt.ShotConfig, v string) { c.StyleEmphasis = prompt.StyleEmphasis(v) },
	},
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, previewCallbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu is not yours.", true)
		return nil
	}

	action := parts[2]
	args := parts[3:]
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	lang := i18n.Match(q.From.LanguageCode)
	id := sessionID(chatID, ownerID)
	h.studio.Ensure(id)

	h.states.Update(chatID, ownerID, func(st *UIState) {
		st.MessageID = msgID
		switch action {
		case "menu":
			if len(args) >= 1 {
				st.Menu = args[0]
			}
		case "await":
			if len(args) >= 1 {
				st.Awaiting = awaiting(args[0])
			}
			st.Menu = menuMain
		case "close":
			st.Awaiting = awaitNone
			st.Menu = menuMain
		}
	})

	switch action {
	case "set":
		if len(args) < 2 {
			break
		}
		if err := h.applySetting(chatID, ownerID, args[0], args[1]); err != nil {
			_ = h.tg.AnswerCallback(q.ID, i18n.Message(lang, err), true)
			return nil
		}
		h.states.Update(chatID, ownerID, func(st *UIState) { st.Menu = menuMain })
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	case "creative":
		snap, err := h.studio.Get(id)
		if err == nil {
			mode := snap.Creative
			mode.Enabled = !mode.Enabled
			_, err = h.studio.SetCreative(id, mode)
		}
		if err != nil {
			_ = h.tg.AnswerCallback(q.ID, i18n.Message(lang, err), true)
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	case "clear":
		if len(args) < 1 {
			break
		}
		var err error
		switch studio.Slot(args[0]) {
		case studio.SlotStyle:
			_, err = h.studio.ClearStyleImage(id)
		case studio.SlotBackground:
			_, err = h.studio.ClearCustomBackground(id)
		case studio.SlotMask:
			_, err = h.studio.ClearMask(id)
		}
		if err != nil {
			_ = h.tg.AnswerCallback(q.ID, i18n.Message(lang, err), true)
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	case "await":
		_ = h.tg.AnswerCallback(q.ID, awaitHint(awaiting(firstArg(args))), false)
	case "prompt":
		_ = h.tg.AnswerCallback(q.ID, "…", false)
		if err := h.sendPrompt(ctx, chatID, ownerID, lang); err != nil {
			return err
		}
	case "mask":
		_ = h.tg.AnswerCallback(q.ID, "Masking…", false)
		if err := h.autoMask(ctx, chatID, ownerID, lang); err != nil {
			return err
		}
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		if err := h.generate(ctx, chatID, ownerID, lang); err != nil {
			return err
		}
	case "enhance":
		_ = h.tg.AnswerCallback(q.ID, "Enhancing…", false)
		h.states.Update(chatID, ownerID, func(st *UIState) { st.Menu = menuMain })
		if err := h.enhance(ctx, chatID, ownerID, lang, firstArg(args)); err != nil {
			return err
		}
	case "load":
		if _, err := h.studio.LoadPreset(ctx, id, firstArg(args)); err != nil {
			_ = h.tg.AnswerCallback(q.ID, i18n.Message(lang, err), true)
			return nil
		}
		h.states.Update(chatID, ownerID, func(st *UIState) { st.Menu = menuMain })
		_ = h.tg.AnswerCallback(q.ID, "Preset loaded", false)
	case "del":
		if err := h.studio.DeletePreset(ctx, firstArg(args)); err != nil {
			_ = h.tg.AnswerCallback(q.ID, i18n.Message(lang, err), true)
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "Preset deleted", false)
	case "reset":
		if _, err := h.studio.Reset(id); err != nil {
			_ = h.tg.AnswerCallback(q.ID, i18n.Message(lang, err), true)
			return nil
		}
		h.states.Reset(chatID, ownerID)
		_ = h.tg.AnswerCallback(q.ID, "Reset", false)
	default:
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}

	return h.renderWizard(chatID, ownerID, msgID, true)
}

// applySetting stores option idx of menu. Picking Custom as background
// waits for a photo instead; the upload switches the style.
func (h *Handler) applySetting(chatID, userID int64, menu, idx string) error {
	m, ok := settingMenus[menu]
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(idx)
	opts := m.options()
	if err != nil || i < 0 || i >= len(opts) {
		return nil
	}
	value := opts[i].Key

	id := sessionID(chatID, userID)
	if menu == menuBg && value == string(prompt.BackgroundCustom) {
		snap, err := h.studio.Get(id)
		if err != nil {
			return err
		}
		if !snap.HasBackground {
			h.states.Update(chatID, userID, func(st *UIState) { st.Awaiting = awaitBackground })
			return nil
		}
	}

	_, err = h.studio.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		m.apply(c, value)
		return nil
	})
	return err
}

func (h *Handler) autoMask(ctx context.Context, chatID, userID int64, lang language.Tag) error {
	h.tg.SendTyping(chatID)
	id := sessionID(chatID, userID)
	if _, err := h.studio.AutoMask(ctx, id); err != nil {
		return h.sendError(chatID, lang, err)
	}
	mask, err := h.studio.Image(id, studio.SlotMask)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	return h.tg.SendPhoto(chatID, mask, "⬛ Mask ready. White marks the product.")
}

// generate flushes a pending prompt rebuild before calling the model, so
// the edit always uses the latest settings.
func (h *Handler) generate(ctx context.Context, chatID, userID int64, lang language.Tag) error {
	h.tg.SendTyping(chatID)
	id := sessionID(chatID, userID)
	if h.studio.PromptPending(id) {
		if _, err := h.studio.RefreshPrompt(ctx, id); err != nil {
			return h.sendError(chatID, lang, err)
		}
	}

	if _, err := h.studio.Generate(ctx, id); err != nil {
		return h.sendError(chatID, lang, err)
	}
	return h.sendResult(chatID, userID, lang, "✅ Done! /download for the full-quality file.")
}

func (h *Handler) enhance(ctx context.Context, chatID, userID int64, lang language.Tag, idx string) error {
	levels := prompt.EnhancementLevels()
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(levels) {
		return nil
	}

	h.tg.SendTyping(chatID)
	level := prompt.EnhancementLevel(levels[i].Key)
	if _, err := h.studio.Enhance(ctx, sessionID(chatID, userID), level, -1); err != nil {
		return h.sendError(chatID, lang, err)
	}
	return h.sendResult(chatID, userID, lang, fmt.Sprintf("✨ Enhanced (%s).", levels[i].Name))
}

func (h *Handler) sendResult(chatID, userID int64, lang language.Tag, caption string) error {
	img, err := h.studio.Image(sessionID(chatID, userID), studio.SlotResult)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}
	return h.tg.SendPhoto(chatID, img, caption)
}

func (h *Handler) renderWizard(chatID, userID int64, messageID int, edit bool) error {
	st := h.states.Get(chatID, userID)
	if messageID == 0 {
		messageID = st.MessageID
	}

	snap, err := h.studio.Get(sessionID(chatID, userID))
	if err != nil {
		return err
	}

	var presets []presetButton
	if st.Menu == menuPresets {
		for _, p := range h.studio.Presets(context.Background()) {
			presets = append(presets, presetButton{ID: p.ID, Name: p.Name})
		}
	}

	text := wizardText(snap, st)
	kb := wizardKeyboard(userID, snap, st, presets)

	if edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.states.Update(chatID, userID, func(st *UIState) { st.MessageID = msgID })
	return nil
}

func wizardText(snap studio.Snapshot, st UIState) string {
	cfg := snap.Config

	var b strings.Builder
	b.WriteString("🍌 Dugo Banana Studio\n\n")
	b.WriteString(fmt.Sprintf("Product: %s\n", check(snap.HasProduct)))
	if snap.HasStyle {
		b.WriteString(fmt.Sprintf("Style: ✅ (%s)\n", prompt.EmphasisLabel(cfg.StyleEmphasis)))
	} else {
		b.WriteString("Style: —\n")
	}
	bg := prompt.Label(prompt.BackgroundStyles(), string(cfg.BackgroundStyle))
	if snap.HasBackground {
		bg += " (photo ✅)"
	}
	b.WriteString(fmt.Sprintf("Background: %s\n", bg))
	b.WriteString(fmt.Sprintf("Mask: %s\n\n", check(snap.HasMask)))

	b.WriteString(fmt.Sprintf("Ratio: %s · Light: %s · Shadows: %s\n",
		cfg.AspectRatio, cfg.LightTemperature, cfg.ShadowIntensity))
	b.WriteString(fmt.Sprintf("Angle: %s · Shot: %s\n", cfg.CameraPerspective, cfg.ShotType))
	if snap.Creative.Enabled {
		b.WriteString(fmt.Sprintf("Creative: ON %s\n", truncateLine(snap.Creative.Keywords, 60)))
	} else {
		b.WriteString("Creative: OFF\n")
	}
	if snap.HistoryLen > 0 {
		b.WriteString(fmt.Sprintf("Results: %d\n", snap.HistoryLen))
	}

	switch {
	case snap.PromptLoading:
		b.WriteString("\nPrompt: building…\n")
	case strings.TrimSpace(snap.Prompt.Positive) != "":
		b.WriteString("\nPrompt: " + truncateLine(snap.Prompt.Positive, 200) + "\n")
	}
	if neg := strings.TrimSpace(snap.Prompt.Negative); neg != "" {
		b.WriteString("Avoid: " + truncateLine(neg, 80) + "\n")
	}

	if hint := awaitHint(st.Awaiting); hint != "" {
		b.WriteString("\n" + hint + "\n")
	} else if snap.HasProduct {
		b.WriteString("\n🎨 Press Generate when ready.\n")
	}

	if st.Menu == menuPresets {
		b.WriteString("\nPresets:\n")
	}

	return strings.TrimSpace(b.String())
}

func awaitHint(a awaiting) string {
	switch a {
	case awaitProduct:
		return "📷 Send the product photo."
	case awaitStyle:
		return "🎨 Send the style reference photo."
	case awaitBackground:
		return "🖼 Send the custom background photo."
	case awaitMask:
		return "⬛ Send the mask."
	case awaitKeywords:
		return "✍️ Send the creative keywords."
	case awaitNegative:
		return "🚫 Send what the image must not contain."
	case awaitPrompt:
		return "📝 Send the new prompt."
	case awaitPresetName:
		return "💾 Send a name for the preset."
	}
	return ""
}

type presetButton struct {
	ID   string
	Name string
}

func wizardKeyboard(ownerID int64, snap studio.Snapshot, st UIState, presets []presetButton) tgbotapi.InlineKeyboardMarkup {
	switch st.Menu {
	case menuEnhance:
		return enhanceKeyboard(ownerID)
	case menuPresets:
		return presetsKeyboard(ownerID, snap, presets)
	}
	if m, ok := settingMenus[st.Menu]; ok {
		return optionsKeyboard(ownerID, st.Menu, m, snap)
	}
	return mainKeyboard(ownerID, snap)
}

func mainKeyboard(ownerID int64, snap studio.Snapshot) tgbotapi.InlineKeyboardMarkup {
	if !snap.HasProduct {
		return tgbotapi.NewInlineKeyboardMarkup(
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("📷 Send photo", cb(ownerID, "await", string(awaitProduct))),
				tgbotapi.NewInlineKeyboardButtonData("💾 Presets", cb(ownerID, "menu", menuPresets)),
			},
			[]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
				tgbotapi.NewInlineKeyboardButtonData("Close", cb(ownerID, "close")),
			},
		)
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("Ratio", cb(ownerID, "menu", menuRatio)),
			tgbotapi.NewInlineKeyboardButtonData("Light", cb(ownerID, "menu", menuLight)),
			tgbotapi.NewInlineKeyboardButtonData("Shadows", cb(ownerID, "menu", menuShadow)),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("Angle", cb(ownerID, "menu", menuAngle)),
			tgbotapi.NewInlineKeyboardButtonData("Shot", cb(ownerID, "menu", menuShot)),
			tgbotapi.NewInlineKeyboardButtonData("Background", cb(ownerID, "menu", menuBg)),
		},
	}

	styleRow := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🎨 Style photo", cb(ownerID, "await", string(awaitStyle))),
	}
	if snap.HasStyle {
		styleRow = append(styleRow,
			tgbotapi.NewInlineKeyboardButtonData("Emphasis", cb(ownerID, "menu", menuEmphasis)),
			tgbotapi.NewInlineKeyboardButtonData("✖ Style", cb(ownerID, "clear", string(studio.SlotStyle))),
		)
	}
	rows = append(rows, styleRow)

	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Creative: "+onOff(snap.Creative.Enabled), cb(ownerID, "creative")),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Keywords", cb(ownerID, "await", string(awaitKeywords))),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Avoid", cb(ownerID, "await", string(awaitNegative))),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📄 Prompt", cb(ownerID, "prompt")),
			tgbotapi.NewInlineKeyboardButtonData("📝 Edit prompt", cb(ownerID, "await", string(awaitPrompt))),
		},
	)

	maskRow := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬛ Auto mask", cb(ownerID, "mask")),
	}
	if snap.HasMask {
		maskRow = append(maskRow, tgbotapi.NewInlineKeyboardButtonData("✖ Mask", cb(ownerID, "clear", string(studio.SlotMask))))
	}
	rows = append(rows, maskRow)

	actionRow := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "generate")),
	}
	if snap.HasResult {
		actionRow = append(actionRow, tgbotapi.NewInlineKeyboardButtonData("✨ Enhance", cb(ownerID, "menu", menuEnhance)))
	}
	rows = append(rows, actionRow,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📷 Photo", cb(ownerID, "await", string(awaitProduct))),
			tgbotapi.NewInlineKeyboardButtonData("💾 Presets", cb(ownerID, "menu", menuPresets)),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
			tgbotapi.NewInlineKeyboardButtonData("Close", cb(ownerID, "close")),
		},
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionsKeyboard(ownerID int64, menu string, m settingMenu, snap studio.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	current := m.current(snap.Config)
	for i, opt := range m.options() {
		label := opt.Name
		if opt.Key == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "set", menu, strconv.Itoa(i))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if menu == menuBg && snap.HasBackground {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✖ Background photo", cb(ownerID, "clear", string(studio.SlotBackground))),
		})
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", menuMain)),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func enhanceKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for i, opt := range prompt.EnhancementLevels() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt.Name, cb(ownerID, "enhance", strconv.Itoa(i))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", menuMain)),
		},
	)
}

func presetsKeyboard(ownerID int64, snap studio.Snapshot, presets []presetButton) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range presets {
		label := truncateLine(p.Name, 30)
		if p.ID == snap.SelectedPreset {
			label = "✅ " + label
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "load", p.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cb(ownerID, "del", p.ID)),
		})
	}
	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("💾 Save current", cb(ownerID, "await", string(awaitPresetName))),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", menuMain)),
		},
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", previewCallbackPrefix, ownerID, strings.Join(parts, ":"))
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func check(v bool) string {
	if v {
		return "✅"
	}
	return "—"
}

func truncateLine(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
