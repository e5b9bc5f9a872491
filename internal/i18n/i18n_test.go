package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		locale string
		want   string
	}{
		{
			name:   "active locale present",
			fields: EnArFr("A", "ب", "C"),
			locale: "fr",
			want:   "C",
		},
		{
			name:   "blank locale falls back to english before arabic",
			fields: EnArFr("A", "ب", ""),
			locale: "fr",
			want:   "A",
		},
		{
			name:   "regional locale uses two letter prefix",
			fields: EnArFr("A", "ب", "C"),
			locale: "ar-LB",
			want:   "ب",
		},
		{
			name:   "english blank follows caller order",
			fields: []Field{{English, ""}, {French, "C"}, {Arabic, "ب"}},
			locale: "de",
			want:   "C",
		},
		{
			name:   "whitespace counts as blank",
			fields: EnArFr("  ", "ب", ""),
			locale: "en",
			want:   "ب",
		},
		{
			name:   "all blank",
			fields: EnArFr("", "", ""),
			locale: "en",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.fields, tt.locale))
		})
	}
}

func TestNegotiate(t *testing.T) {
	assert.Equal(t, French, Negotiate("en-US,en;q=0.5", "fr"))
	assert.Equal(t, Arabic, Negotiate("ar-LB,ar;q=0.9,en;q=0.5", ""))
	assert.Equal(t, French, Negotiate("fr-CA", ""))
	assert.Equal(t, Default, Negotiate("", ""))
	assert.Equal(t, Default, Negotiate("", "xx-not-a-tag!!"))
	assert.Equal(t, English, Negotiate("de-DE", "de"))
}

func TestLocaleContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Default, FromContext(ctx))
	assert.Equal(t, Arabic, FromContext(WithLocale(ctx, Arabic)))
}
