package lyrics

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// DefaultGrapheme is sung when a lyric has no singable characters.
const DefaultGrapheme = "あ"

// kana approximations for hanzi that commonly appear in imported lyrics.
var hanziToKana = map[string]string{
	"卡": "か",
	"爱": "あい",
	"鲁": "る",
	"诺": "の",
	"乌": "う",
	"他": "た",
	"嘎": "が",
}

// ToSingable rewrites text into a form the vocal engines pronounce well:
// NFC normalisation, hanzi to kana substitution and contraction of the long
// vowel "あい" to "あ".
func ToSingable(text string) string {
	result := norm.NFC.String(text)
	for hanzi, kana := range hanziToKana {
		result = strings.ReplaceAll(result, hanzi, kana)
	}
	return strings.ReplaceAll(result, "あい", "あ")
}

// Graphemes splits text into user-perceived characters, dropping whitespace,
// punctuation and control clusters.
func Graphemes(text string) []string {
	var out []string
	g := uniseg.NewGraphemes(norm.NFC.String(text))
	for g.Next() {
		cluster := g.Str()
		if !singable(cluster) {
			continue
		}
		out = append(out, cluster)
	}
	return out
}

func singable(cluster string) bool {
	for _, r := range cluster {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
