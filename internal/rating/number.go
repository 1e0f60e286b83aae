package rating

import (
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

var digitsRe = regexp.MustCompile(`[0-9]+`)

// numberAliases rewrites school numbers that were merged into another school.
var numberAliases = map[int]int{
	1567: 67,
}

// ExtractNumber returns the school number embedded in name, or nil when the
// name has none. With several numbers the first one wins.
func ExtractNumber(name string) *int {
	tokens := numberTokens(name)
	if len(tokens) == 0 {
		zap.L().Debug("rating: missing school number", zap.String("name", name))
		return nil
	}
	if len(tokens) > 1 {
		// TODO: confirm first-token policy with the rating owners; the older
		// parser rejected such names outright.
		zap.L().Debug("rating: several school numbers, using the first",
			zap.String("name", name),
			zap.Strings("numbers", tokens),
		)
	}

	n, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil
	}
	if alias, ok := numberAliases[n]; ok {
		n = alias
	}
	return &n
}

// numberTokens returns the standalone digit runs in name. A run glued to a
// letter, digit or underscore on either side (in any script) is not a token.
func numberTokens(name string) []string {
	var out []string
	for _, loc := range digitsRe.FindAllStringIndex(name, -1) {
		before, _ := utf8.DecodeLastRuneInString(name[:loc[0]])
		after, _ := utf8.DecodeRuneInString(name[loc[1]:])
		if isWordRune(before) || isWordRune(after) {
			continue
		}
		out = append(out, name[loc[0]:loc[1]])
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
