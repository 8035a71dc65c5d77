package web

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// Locales lists the shipped translations
var Locales = []string{"en", "pt-BR"}

var (
	bundle        *i18n.Bundle
	defaultLocal  *i18n.Localizer
	currentLocale = "en"
)

type localizerKey struct{}

func init() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, locale := range Locales {
		data, err := localesFS.ReadFile("locales/" + locale + ".json")
		if err != nil {
			log.Warn().Err(err).Str("locale", locale).Msg("i18n: failed to read locale file")
			continue
		}
		if _, err := bundle.ParseMessageFileBytes(data, locale+".json"); err != nil {
			log.Warn().Err(err).Str("locale", locale).Msg("i18n: failed to parse locale file")
		}
	}

	defaultLocal = i18n.NewLocalizer(bundle, currentLocale)
}

// SetLanguage sets the language used when a request does not ask for one
func SetLanguage(lang string) {
	currentLocale = lang
	defaultLocal = i18n.NewLocalizer(bundle, currentLocale)
}

// WithLocalizer adds a localizer to the context
func WithLocalizer(ctx context.Context, localizer *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, localizer)
}

// LocalizerFromContext returns the request localizer, or the default one
func LocalizerFromContext(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	return defaultLocal
}

// LocalizerFromRequest picks languages from the Accept-Language header,
// falling back to the configured language.
func LocalizerFromRequest(r *http.Request) *i18n.Localizer {
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return i18n.NewLocalizer(bundle, accept, currentLocale)
	}
	return defaultLocal
}

// languageFromRequest returns the best shipped language for r, for the html lang attribute
func languageFromRequest(r *http.Request) string {
	supported := make([]language.Tag, 0, len(Locales)+1)
	supported = append(supported, language.Make(currentLocale))
	for _, l := range Locales {
		supported = append(supported, language.Make(l))
	}
	matcher := language.NewMatcher(supported)
	_, idx, _ := matcher.Match(parseAcceptLanguage(r)...)
	return supported[idx].String()
}

func parseAcceptLanguage(r *http.Request) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil {
		return nil
	}
	return tags
}

func i18nMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLocalizer(r.Context(), LocalizerFromRequest(r))
		handler.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Localize translates messageID with the localizer in ctx. Unknown ids are
// returned as is.
func Localize(ctx context.Context, messageID string) string {
	msg, err := LocalizerFromContext(ctx).Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

// LocalizeCount translates a plural message, exposing n as .Count
func LocalizeCount(ctx context.Context, messageID string, n int64) string {
	msg, err := LocalizerFromContext(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  n,
		TemplateData: map[string]any{"Count": n},
	})
	if err != nil {
		return messageID
	}
	return msg
}
