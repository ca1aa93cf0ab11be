package i18n

import (
	"embed"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/active.*.toml
var localeFS embed.FS
var bundle *i18n.Bundle

func init() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, file := range []string{"translations/active.en.toml", "translations/active.ru.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			panic(err)
		}
	}
}

type C = i18n.LocalizeConfig
type M = i18n.Message

// T localizes c for lang, falling back to English. A message missing from
// every translation is rendered as its id.
func T(lang string, c C) string {
	s, err := i18n.NewLocalizer(bundle, lang, language.English.String()).Localize(&c)
	if err != nil && s == "" {
		return c.MessageID
	}
	return s
}
