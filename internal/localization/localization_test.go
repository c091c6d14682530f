package localization_test

import (
	"crypton/backend/internal/localization"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTranslations(t *testing.T) {
	l, err := localization.NewEmbedded()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"en", "fr"}, l.Languages())
	assert.Equal(t, "Room not found", l.GetString("en", "error.not_found"))
	assert.Equal(t, "Salle non trouvée", l.GetString("fr", "error.not_found"))
	assert.Equal(t, "Room not found", l.GetString("de", "error.not_found"), "unknown languages fall back to en")
	assert.Equal(t, "error.missing", l.GetString("fr", "error.missing"))
}

func TestPickLanguage(t *testing.T) {
	l, err := localization.NewEmbedded()
	require.NoError(t, err)

	assert.Equal(t, "fr", l.PickLanguage("fr-FR,fr;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", l.PickLanguage("de-DE, en-GB;q=0.5"))
	assert.Equal(t, "en", l.PickLanguage(""))
	assert.Equal(t, "en", l.PickLanguage("ja"))
}

func TestNewLocalizer_BadFile(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.json":  {Data: []byte(`{"a": "b"}`)},
		"i18n/xx.json":  {Data: []byte(`not json`)},
		"i18n/notes.md": {Data: []byte(`ignored`)},
	}

	_, err := localization.NewLocalizer(fsys, "i18n")
	assert.ErrorContains(t, err, "xx.json")

	_, err = localization.NewLocalizer(fsys, "missing")
	assert.Error(t, err)
}
