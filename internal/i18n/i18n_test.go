package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedCatalogs(t *testing.T) {
	m, err := Load("en")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"en", "ru"}, m.Languages())

	en := m.Translator("en")
	assert.Equal(t, "You are admin!", en.T("admin.you_are_admin"))
	assert.Equal(t, "User 42 is a teacher now.", Format(en, "admin.teacher_added", 42))
}

func TestCatalogs_HaveSameKeys(t *testing.T) {
	m, err := Load("en")
	require.NoError(t, err)

	for key := range m.translations["en"] {
		_, ok := m.translations["ru"][key]
		assert.True(t, ok, "ru is missing %s", key)
	}
	for key := range m.translations["ru"] {
		_, ok := m.translations["en"][key]
		assert.True(t, ok, "en is missing %s", key)
	}
}

func TestTranslator_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("en:\n  a:\n    b: \"hello\"\n  only_en: \"fallback\"\n")},
		"locales/ru.yaml": {Data: []byte("ru:\n  a:\n    b: \"привет\"\n")},
		"locales/notes.txt": {Data: []byte("ignored")},
	}

	m, err := LoadFS(fsys, "locales", "en")
	require.NoError(t, err)

	tests := []struct {
		name string
		lang string
		key  string
		want string
	}{
		{name: "exact language", lang: "ru", key: "a.b", want: "привет"},
		{name: "regional tag", lang: "ru-RU", key: "a.b", want: "привет"},
		{name: "unknown language", lang: "de", key: "a.b", want: "hello"},
		{name: "missing key falls back to default", lang: "ru", key: "only_en", want: "fallback"},
		{name: "missing everywhere", lang: "en", key: "nope", want: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Translator(tt.lang).T(tt.key))
		})
	}
}

func TestLoadFS_Errors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"x/readme.md": {Data: []byte("#")}}, "x", "en")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"x/ru.yaml": {Data: []byte("ru:\n  k: v\n")}}, "x", "en")
	assert.Error(t, err)
}
