package nlp

import (
	"strings"
	"unicode"

	"ProjectAssistant/internal/entity"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var yesWords = map[string]struct{}{
	"yes": {}, "y": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {},
	"ok": {}, "okay": {}, "confirm": {}, "confirmed": {}, "do it": {}, "go ahead": {},
}

var noWords = map[string]struct{}{
	"no": {}, "n": {}, "nope": {}, "nah": {}, "cancel": {}, "stop": {},
	"dont": {}, "don t": {}, "never mind": {}, "nevermind": {}, "abort": {},
}

// QuickConfirmation recognises a bare yes or no reply so it can skip the
// generator. It reports false for anything else.
func QuickConfirmation(text string) (entity.Intent, bool) {
	clean := cleanText(text)

	var action entity.Action
	if _, ok := yesWords[clean]; ok {
		action = entity.ActionConfirmYes
	} else if _, ok := noWords[clean]; ok {
		action = entity.ActionConfirmNo
	} else {
		return entity.Intent{}, false
	}

	return entity.Intent{
		Action:        action,
		Parameters:    entity.NewParameters(),
		Confidence:    1.0,
		HumanReadable: action.String(),
	}, true
}

// cleanText lowercases, strips diacritics and punctuation, and collapses
// whitespace.
func cleanText(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	return strings.Join(strings.Fields(result), " ")
}
