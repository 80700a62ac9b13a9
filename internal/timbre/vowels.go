package timbre

import "strings"

var kanaVowels = map[string]string{
	"か": "a", "き": "i", "く": "u", "け": "e", "こ": "o",
	"が": "a", "ぎ": "i", "ぐ": "u", "げ": "e", "ご": "o",
	"さ": "a", "し": "i", "す": "u", "せ": "e", "そ": "o",
	"ざ": "a", "じ": "i", "ず": "u", "ぜ": "e", "ぞ": "o",
	"た": "a", "ち": "i", "つ": "u", "て": "e", "と": "o",
	"だ": "a", "ぢ": "i", "づ": "u", "で": "e", "ど": "o",
	"な": "a", "に": "i", "ぬ": "u", "ね": "e", "の": "o",
	"は": "a", "ひ": "i", "ふ": "u", "へ": "e", "ほ": "o",
	"ば": "a", "び": "i", "ぶ": "u", "べ": "e", "ぼ": "o",
	"ぱ": "a", "ぴ": "i", "ぷ": "u", "ぺ": "e", "ぽ": "o",
	"ま": "a", "み": "i", "む": "u", "め": "e", "も": "o",
	"や": "a", "ゆ": "u", "よ": "o",
	"ら": "a", "り": "i", "る": "u", "れ": "e", "ろ": "o",
	"わ": "a", "ゐ": "i", "ゑ": "e", "を": "o", "ん": "u",
	"あ": "a", "い": "i", "う": "u", "え": "e", "お": "o",
}

// VowelFor maps a grapheme to the vowel it is sung on. Hiragana use the kana
// table, katakana are folded to hiragana first, latin text uses its last
// vowel letter, and anything else sings DefaultVowel.
func VowelFor(grapheme string) string {
	if v, ok := kanaVowels[grapheme]; ok {
		return v
	}
	if v, ok := kanaVowels[katakanaToHiragana(grapheme)]; ok {
		return v
	}
	lower := strings.ToLower(grapheme)
	for i := len(lower) - 1; i >= 0; i-- {
		switch lower[i] {
		case 'a', 'e', 'i', 'o', 'u':
			return string(lower[i])
		}
	}
	return DefaultVowel
}

func katakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}
