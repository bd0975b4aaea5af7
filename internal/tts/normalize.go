package tts

import "strings"

// Locant digits are spelled out so the voice reads "2-propanol" as
// "two propanol" instead of guessing at the punctuation.
var digitWords = map[rune]string{
	'0': "zero", '1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight", '9': "nine",
}

// NormalizePronunciation rewrites a compound name for clear TTS reading:
// each digit becomes an English word and hyphens/commas become spaces.
//
//	"3-methyl-1-butanol"  -> "three methyl one butanol"
//	"2,2-dimethylpropane" -> "two two dimethylpropane"
func NormalizePronunciation(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9':
			b.WriteString(digitWords[r])
			b.WriteRune(' ')
		case r == '-' || r == ',':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
