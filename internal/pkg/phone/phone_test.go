package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_StripsNonDigits(t *testing.T) {
	assert.Equal(t, "15551234567", Normalize("+1 (555) 123-4567"))
	assert.Equal(t, "573122887635", Normalize("+573122887635"))
	assert.Equal(t, "", Normalize("abc"))
}

func TestLanguage_LongestPrefixWins(t *testing.T) {
	// 351 (Portugal) must not be mistaken for 35 or 3.
	assert.Equal(t, "pt", Language("+351912345678"))
	// 57 (Colombia) over 5.
	assert.Equal(t, "es", Language("573122887635"))
}

func TestLanguage_CommonCodes(t *testing.T) {
	assert.Equal(t, "en", Language("+15551234567"))
	assert.Equal(t, "fr", Language("+33612345678"))
	assert.Equal(t, "de", Language("+4917612345678"))
	assert.Equal(t, "it", Language("+393331234567"))
	assert.Equal(t, "pt", Language("+5511987654321"))
}

func TestLanguage_UnknownFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "en", Language("+7123456789")) // Russia, not mapped
	assert.Equal(t, "en", Language(""))
}
