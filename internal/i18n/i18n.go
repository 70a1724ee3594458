// Package i18n turns operation errors into short messages for end users.
package i18n

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/text/language"

	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/preset"
	"dugo-banana-studio/internal/prompt"
	"dugo-banana-studio/internal/studio"
)

type Key string

const (
	KeyPromptFailed        Key = "promptFailed"
	KeyInitialPromptFailed Key = "initialPromptFailed"
	KeyMissingData         Key = "missingData"
	KeyImageFailed         Key = "imageFailed"
	KeyMaskFailed          Key = "maskFailed"
	KeyEnhanceFailed       Key = "enhanceFailed"
	KeyReiterateFailed     Key = "reiterateFailed"
	KeyExportFailed        Key = "exportFailed"
	KeyPresetFailed        Key = "presetFailed"
	KeyPresetNotFound      Key = "presetNotFound"
	KeyPresetName          Key = "presetName"
	KeyBusy                Key = "busy"
	KeySessionNotFound     Key = "sessionNotFound"
	KeyNoResult            Key = "noResult"
	KeyInvalidImage        Key = "invalidImage"
	KeyInvalidConfig       Key = "invalidConfig"
	KeyGeneric             Key = "generic"
)

var supported = []language.Tag{language.English, language.Italian}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[Key]string{
	language.English: {
		KeyPromptFailed:        "Could not build the prompt. Please try again.",
		KeyInitialPromptFailed: "Could not load the starting prompt template.",
		KeyMissingData:         "Please upload a product image and make sure the prompt is not empty.",
		KeyImageFailed:         "Image generation failed. Please try again.",
		KeyMaskFailed:          "Could not create the mask automatically.",
		KeyEnhanceFailed:       "Could not enhance the image.",
		KeyReiterateFailed:     "Could not use that image as the new product.",
		KeyExportFailed:        "Could not export the image.",
		KeyPresetFailed:        "Could not save or load the preset.",
		KeyPresetNotFound:      "Preset not found.",
		KeyPresetName:          "Please give the preset a name.",
		KeyBusy:                "That operation is already running.",
		KeySessionNotFound:     "Session not found. Start a new one.",
		KeyNoResult:            "There is no generated image yet.",
		KeyInvalidImage:        "Unsupported or damaged image. Use PNG, JPEG or WEBP.",
		KeyInvalidConfig:       "Invalid shot settings.",
		KeyGeneric:             "Something went wrong",
	},
	language.Italian: {
		KeyPromptFailed:        "Impossibile creare il prompt. Riprova.",
		KeyInitialPromptFailed: "Impossibile caricare il modello di prompt iniziale.",
		KeyMissingData:         "Carica un'immagine del prodotto e assicurati che il prompt non sia vuoto.",
		KeyImageFailed:         "Generazione dell'immagine non riuscita. Riprova.",
		KeyMaskFailed:          "Impossibile creare la maschera automaticamente.",
		KeyEnhanceFailed:       "Impossibile migliorare l'immagine.",
		KeyReiterateFailed:     "Impossibile usare questa immagine come nuovo prodotto.",
		KeyExportFailed:        "Impossibile esportare l'immagine.",
		KeyPresetFailed:        "Impossibile salvare o caricare il preset.",
		KeyPresetNotFound:      "Preset non trovato.",
		KeyPresetName:          "Dai un nome al preset.",
		KeyBusy:                "Questa operazione è già in corso.",
		KeySessionNotFound:     "Sessione non trovata. Iniziane una nuova.",
		KeyNoResult:            "Non c'è ancora un'immagine generata.",
		KeyInvalidImage:        "Immagine non supportata o danneggiata. Usa PNG, JPEG o WEBP.",
		KeyInvalidConfig:       "Impostazioni di scatto non valide.",
		KeyGeneric:             "Qualcosa è andato storto",
	},
}

// Match picks the closest supported language for the given preferences,
// each either a tag or an Accept-Language value. English is the fallback.
func Match(prefs ...string) language.Tag {
	tag, _ := language.MatchStrings(matcher, prefs...)
	base, _ := tag.Base()
	for _, t := range supported {
		if b, _ := t.Base(); b == base {
			return t
		}
	}
	return language.English
}

// Detect reads X-Locale first, then Accept-Language.
func Detect(r *http.Request) language.Tag {
	return Match(r.Header.Get("X-Locale"), r.Header.Get("Accept-Language"))
}

type ctxKey struct{}

func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

func FromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return language.English
}

// Middleware stores the request language in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), Detect(r))))
	})
}

func Text(lang language.Tag, key Key) string {
	table, ok := messages[lang]
	if !ok {
		table = messages[language.English]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	return messages[language.English][key]
}

// Message localises err. Errors without a dedicated message get the generic
// text followed by the error itself.
func Message(lang language.Tag, err error) string {
	if err == nil {
		return ""
	}
	key := KeyFor(err)
	if key == KeyGeneric {
		return Text(lang, KeyGeneric) + ": " + err.Error()
	}
	return Text(lang, key)
}

// KeyFor maps err to a message key. Sentinels win over the operation that
// failed; the operation picks the message otherwise.
func KeyFor(err error) Key {
	switch {
	case errors.Is(err, studio.ErrBusy):
		return KeyBusy
	case errors.Is(err, studio.ErrSessionNotFound):
		return KeySessionNotFound
	case errors.Is(err, studio.ErrNoResult):
		return KeyNoResult
	case errors.Is(err, gemini.ErrMissingInput):
		return KeyMissingData
	case errors.Is(err, gemini.ErrNoMaskProduced):
		return KeyMaskFailed
	case errors.Is(err, preset.ErrNotFound):
		return KeyPresetNotFound
	case errors.Is(err, preset.ErrInvalidName):
		return KeyPresetName
	case errors.Is(err, prompt.ErrInvalidConfig):
		return KeyInvalidConfig
	case errors.Is(err, media.ErrImageDecode),
		errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrEmptyImage):
		return KeyInvalidImage
	}

	var opErr *studio.OpError
	if !errors.As(err, &opErr) {
		return KeyGeneric
	}
	switch opErr.Op {
	case studio.OpPrompt:
		return KeyPromptFailed
	case studio.OpTemplate:
		return KeyInitialPromptFailed
	case studio.OpGenerate:
		return KeyImageFailed
	case studio.OpMask:
		return KeyMaskFailed
	case studio.OpEnhance:
		return KeyEnhanceFailed
	case studio.OpReiterate:
		return KeyReiterateFailed
	case studio.OpExport:
		return KeyExportFailed
	case studio.OpPreset:
		return KeyPresetFailed
	}
	return KeyGeneric
}
