// Package i18n resolves localized text fields and negotiates the request locale.
//
// Records in the directory carry one column per supported language (name_en,
// name_ar, name_fr, ...). Resolution never reads ambient state: the caller passes
// the locale and the ordered list of fields to consider.
package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Arabic  = "ar"
	French  = "fr"
)

// Default is used when nothing in the request matches a supported language.
const Default = English

// Supported lists the languages the directory stores text for.
var Supported = []string{English, Arabic, French}

// Field is one localized column of a record.
type Field struct {
	Lang  string
	Value string
}

// Resolve returns the value for locale's two-letter prefix when that field is
// non-blank. Otherwise it returns the first non-blank value in fields order,
// or "" if all are blank.
func Resolve(fields []Field, locale string) string {
	lang := locale
	if len(lang) > 2 {
		lang = lang[:2]
	}
	lang = strings.ToLower(lang)

	for _, f := range fields {
		if f.Lang == lang && strings.TrimSpace(f.Value) != "" {
			return f.Value
		}
	}
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			return f.Value
		}
	}
	return ""
}

// EnArFr orders three values with the English, Arabic, French fallback.
func EnArFr(en, ar, fr string) []Field {
	return []Field{{English, en}, {Arabic, ar}, {French, fr}}
}


var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Arabic,
	language.French,
})

// Negotiate picks a supported locale. An explicit override (e.g. ?lang=fr) wins
// over the Accept-Language header.
func Negotiate(acceptLanguage, override string) string {
	if override != "" {
		if tag, err := language.Parse(override); err == nil {
			base, _ := tag.Base()
			for _, s := range Supported {
				if base.String() == s {
					return s
				}
			}
		}
	}

	if acceptLanguage == "" {
		return Default
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Supported[idx]
}

type ctxKey struct{}

// WithLocale stores the negotiated locale on the context.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// FromContext returns the locale stored by WithLocale, or Default.
func FromContext(ctx context.Context) string {
	if l, ok := ctx.Value(ctxKey{}).(string); ok && l != "" {
		return l
	}
	return Default
}
