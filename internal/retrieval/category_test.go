package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		ref      string
		category string
		priority int
	}{
		{"Shulchan Arukh, Orach Chayim 89:1", CategoryShulchanArukh, 1},
		{"Shulchan Arukh, Yoreh De'ah 87:3", CategoryShulchanArukh, 1},
		{"Mishnah Berurah 89:4", CategoryMishnahBerurah, 2},
		{"Mishneh Torah, Foreign Worship and Customs of the Nations 2:1", CategoryMishnehTorah, 3},
		{"Berakhot 2a", CategoryTalmud, 4},
		{"Chullin 105a", CategoryTalmud, 4},
		{"Bava Metzia 59b", CategoryTalmud, 4},
		{"Genesis 1:1", CategoryTorah, 5},
		{"Deuteronomy 14:21", CategoryTorah, 5},
		{"Arukh HaShulchan, Yoreh De'ah 89:7", CategoryArukhHaShulchan, 6},
		{"Kaf HaChaim 89:2", CategoryKafHaChaim, 7},
		{"Igrot Moshe, Orach Chayim I 5", CategoryOther, 10},
		{"", CategoryOther, 10},
	}

	for _, tt := range tests {
		cat, prio := Classify(tt.ref)
		assert.Equal(t, tt.category, cat, "Classify(%q) category", tt.ref)
		assert.Equal(t, tt.priority, prio, "Classify(%q) priority", tt.ref)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// "Arukh HaShulchan" must not hit the Shulchan Arukh substring rule.
	cat, _ := Classify("Arukh HaShulchan, Orach Chayim 89:1")
	assert.Equal(t, CategoryArukhHaShulchan, cat)
}

func TestClassify_PrefixAnchored(t *testing.T) {
	// Tractate and book names only count at the start of the ref. A work
	// merely mentioning one mid-ref is not reclassified.
	cat, _ := Classify("Responsa on Berakhot 2a")
	assert.Equal(t, CategoryOther, cat)

	cat, _ = Classify("Commentary to Genesis 1:1")
	assert.Equal(t, CategoryOther, cat)
}

func TestClassify_Idempotent(t *testing.T) {
	known := map[string]bool{
		CategoryShulchanArukh:   true,
		CategoryMishnahBerurah:  true,
		CategoryMishnehTorah:    true,
		CategoryTalmud:          true,
		CategoryTorah:           true,
		CategoryArukhHaShulchan: true,
		CategoryKafHaChaim:      true,
		CategoryOther:           true,
	}

	refs := []string{
		"Shulchan Arukh, Orach Chayim 1:1",
		"Berakhot 2a",
		"some random string",
		"",
	}
	for _, ref := range refs {
		first, p1 := Classify(ref)
		for i := 0; i < 5; i++ {
			cat, p := Classify(ref)
			assert.Equal(t, first, cat)
			assert.Equal(t, p1, p)
		}
		assert.True(t, known[first], "category %q not in the fixed set", first)
	}
}
