package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panchayat-connect/internal/models"
)

func TestCatalog_T(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "In Progress", c.T(English, "status.inProgress"))
	assert.Equal(t, "പുരോഗതിയിൽ", c.T(Malayalam, "status.inProgress"))
	assert.Equal(t, "Waterworks Team", c.T(English, "teams.water"))
	assert.Equal(t, "Waterworks Team", c.T("fr", "teams.water"))
	assert.Equal(t, "missing.key", c.T(English, "missing.key"))
	assert.Equal(t, "status", c.T(English, "status"))
}

func TestCatalog_CoversEveryEnum(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	for _, lang := range []Language{English, Malayalam} {
		for _, cat := range models.Categories {
			key := "categories." + string(cat)
			assert.NotEqual(t, key, c.T(lang, key), "%s %s", lang, key)
		}
		for _, s := range models.Statuses {
			key := "status." + string(s)
			assert.NotEqual(t, key, c.T(lang, key), "%s %s", lang, key)
		}
		for _, team := range models.CategoryToTeam {
			key := "teams." + string(team)
			assert.NotEqual(t, key, c.T(lang, key), "%s %s", lang, key)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, English, ParseLanguage(""))
	assert.Equal(t, English, ParseLanguage("en-US,en;q=0.9"))
	assert.Equal(t, Malayalam, ParseLanguage("ml"))
	assert.Equal(t, Malayalam, ParseLanguage("ml-IN,en;q=0.5"))
	assert.Equal(t, English, ParseLanguage("de-DE"))
}
