package detection

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// IDLength is the number of runes in a resident-registration number
// (six digits, a hyphen, seven digits).
const IDLength = 14

// hyphenSlot is the index of the separator within an ID.
const hyphenSlot = 6

// ConfusionTable lists the OCR misreads accepted in each slot of an ID.
//
// Digit slots accept ASCII digits plus the keys of Digits, which are replaced
// by their mapped digit. The hyphen slot accepts '-' plus the runes in
// Hyphens. Anything else in a slot rejects the candidate.
type ConfusionTable struct {
	Digits  map[rune]rune
	Hyphens map[rune]bool
}

// DefaultConfusions returns the misreads Tesseract commonly produces on
// printed Korean documents.
//
// 'A' and 'B' are absent: a leading "AB" is text, not a damaged number.
func DefaultConfusions() ConfusionTable {
	return ConfusionTable{
		Digits: map[rune]rune{
			'O': '0', 'o': '0', 'D': '0', 'Q': '0', 'ㅇ': '0',
			'I': '1', 'l': '1', '|': '1', 'i': '1', '!': '1', 'ㅣ': '1',
			'Z': '2', 'z': '2',
			'S': '5', 's': '5',
			'G': '6', 'b': '6',
			'T': '7',
			'g': '9', 'q': '9',
		},
		Hyphens: map[rune]bool{
			'‐': true, // U+2010 hyphen
			'‑': true, // U+2011 non-breaking hyphen
			'‒': true, // U+2012 figure dash
			'–': true, // U+2013 en dash
			'—': true, // U+2014 em dash
			'―': true, // U+2015 horizontal bar
			'−': true, // U+2212 minus sign
			'ー': true, // U+30FC katakana prolonged sound mark
			'_': true,
			'~': true,
		},
	}
}

// normalized returns a copy of t that also accepts the NFKC form of every
// key, so the table still applies after candidate text is normalized.
// Compatibility jamo such as 'ㅇ' change code point under NFKC.
func (t ConfusionTable) normalized() ConfusionTable {
	out := ConfusionTable{
		Digits:  make(map[rune]rune, len(t.Digits)*2),
		Hyphens: make(map[rune]bool, len(t.Hyphens)*2),
	}
	for k, v := range t.Digits {
		out.Digits[k] = v
		if nk, ok := nfkcRune(k); ok {
			out.Digits[nk] = v
		}
	}
	for k, v := range t.Hyphens {
		out.Hyphens[k] = v
		if nk, ok := nfkcRune(k); ok {
			out.Hyphens[nk] = v
		}
	}
	return out
}

func nfkcRune(r rune) (rune, bool) {
	s := norm.NFKC.String(string(r))
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	nr, _ := utf8.DecodeRuneInString(s)
	return nr, true
}

// Correct maps a 14-rune window onto the ID shape.
//
// It returns the corrected text and the number of digit substitutions made.
// Hyphen variants are normalized to '-' without counting as a substitution.
// ok is false when the window has the wrong length or a slot holds a rune
// the table does not accept.
func (t ConfusionTable) Correct(window string) (corrected string, substitutions int, ok bool) {
	runes := []rune(window)
	if len(runes) != IDLength {
		return "", 0, false
	}

	out := make([]rune, IDLength)
	for i, r := range runes {
		if i == hyphenSlot {
			switch {
			case r == '-':
				out[i] = r
			case t.Hyphens[r]:
				out[i] = '-'
			default:
				return "", 0, false
			}
			continue
		}

		if r >= '0' && r <= '9' {
			out[i] = r
			continue
		}
		d, found := t.Digits[r]
		if !found {
			return "", 0, false
		}
		out[i] = d
		substitutions++
	}

	return string(out), substitutions, true
}
