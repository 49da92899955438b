package retrieval

import "strings"

// Source categories in authority order. The priority drives the sort of the
// evidence set: a lower number means the source is cited first.
const (
	CategoryShulchanArukh   = "Shulchan Arukh"
	CategoryMishnahBerurah  = "Mishnah Berurah"
	CategoryMishnehTorah    = "Mishneh Torah"
	CategoryTalmud          = "Talmud"
	CategoryTorah           = "Torah"
	CategoryArukhHaShulchan = "Arukh HaShulchan"
	CategoryKafHaChaim      = "Kaf HaChaim"
	CategoryOther           = "Other"
)

const otherPriority = 10

// Rule is one entry of the ordered classification table. Rules are evaluated
// top to bottom; the first match wins.
type Rule struct {
	Category string
	Priority int
	Match    func(ref string) bool
}

// Named codes are matched by substring containment: a citation like
// "Shulchan Arukh, Orach Chayim 89:1" carries the work's name anywhere in the
// ref. Corpus subdivisions and books are matched prefix-anchored, since a
// Talmud or Torah ref starts with the tractate or book name.
var rules = []Rule{
	{CategoryShulchanArukh, 1, contains("Shulchan Arukh")},
	{CategoryMishnahBerurah, 2, contains("Mishnah Berurah")},
	{CategoryMishnehTorah, 3, contains("Mishneh Torah")},
	{CategoryTalmud, 4, anyOf(contains("Talmud"), contains("Bavli"), hasAnyPrefix(tractates))},
	{CategoryTorah, 5, hasAnyPrefix(torahBooks)},
	{CategoryArukhHaShulchan, 6, contains("Arukh HaShulchan")},
	{CategoryKafHaChaim, 7, contains("Kaf HaChaim")},
}

// tractates are the Bavli subdivisions, as they appear at the start of a
// bare Talmud citation ("Berakhot 2a").
var tractates = []string{
	"Berakhot", "Shabbat", "Eruvin", "Pesachim", "Rosh Hashanah", "Yoma",
	"Sukkah", "Beitzah", "Taanit", "Megillah", "Moed Katan", "Chagigah",
	"Yevamot", "Ketubot", "Nedarim", "Nazir", "Sotah", "Gittin", "Kiddushin",
	"Bava Kamma", "Bava Metzia", "Bava Batra", "Sanhedrin", "Makkot",
	"Shevuot", "Avodah Zarah", "Horayot", "Zevachim", "Menachot", "Chullin",
	"Bekhorot", "Arakhin", "Temurah", "Keritot", "Meilah", "Tamid", "Niddah",
}

var torahBooks = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy",
	"Bereshit", "Shemot", "Vayikra", "Bamidbar", "Devarim",
}

// Classify maps a citation ref to its category and priority. It is a pure
// function of the ref string; unknown refs fall through to Other.
func Classify(ref string) (category string, priority int) {
	for _, r := range rules {
		if r.Match(ref) {
			return r.Category, r.Priority
		}
	}
	return CategoryOther, otherPriority
}

func contains(sub string) func(string) bool {
	return func(ref string) bool {
		return strings.Contains(ref, sub)
	}
}

func hasAnyPrefix(names []string) func(string) bool {
	return func(ref string) bool {
		for _, n := range names {
			if strings.HasPrefix(ref, n) {
				return true
			}
		}
		return false
	}
}

func anyOf(preds ...func(string) bool) func(string) bool {
	return func(ref string) bool {
		for _, p := range preds {
			if p(ref) {
				return true
			}
		}
		return false
	}
}
