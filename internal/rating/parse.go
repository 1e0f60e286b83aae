// Package rating parses free-form school rank lists into School records.
package rating

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/school-tracker/internal/model"
)

var (
	commentRe = regexp.MustCompile(`#.*`)
	spaceRe   = regexp.MustCompile(`\s+`)

	// 1. Школа №1535 (+1)
	rankedRe = regexp.MustCompile(`^([0-9]+)\. +(.*) +\(([+-][0-9]+)\) *$`)
	// Школа №179 Москва<TAB>94
	scoredRe = regexp.MustCompile(`^(.*)\t([0-9]+)$`)
	// 1 <TAB>Лицей НИУ ВШЭ<TAB>Москва<TAB>Москва<TAB>1000,00
	tableRe = regexp.MustCompile(`^[0-9]+[ \t]+([^\t]+)\t+([^\t]+\t+[^\t]+)\t+([0-9]+(?:[.,][0-9]+)?)`)
)

// Warning describes an input line that was skipped.
type Warning struct {
	Line int
	Text string
}

// Result holds parsed schools in input order plus an index by school number.
// ByNumber keeps the last school parsed for each number.
type Result struct {
	Schools  []*model.School
	ByNumber map[int]*model.School
	Warnings []Warning
}

// ParseFile opens path, decodes it from the named charset (empty means
// UTF-8) and parses it.
func ParseFile(path, charset, defaultCity string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rating: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "rating: unsupported charset %q", charset)
		}
		r = enc.NewDecoder().Reader(f)
	}
	return Parse(r, defaultCity)
}

// Parse reads a rank list. Lines in none of the known layouts are logged,
// recorded in Result.Warnings and skipped. Schools from the first two
// layouts get defaultCity.
func Parse(r io.Reader, defaultCity string) (*Result, error) {
	res := &Result{ByNumber: make(map[int]*model.School)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(commentRe.ReplaceAllString(sc.Text(), ""))
		if line == "" {
			continue
		}

		s, ok := parseLine(line, defaultCity)
		if !ok {
			zap.L().Warn("rating: failed to parse school info",
				zap.Int("line", lineNo),
				zap.String("text", line),
			)
			res.Warnings = append(res.Warnings, Warning{Line: lineNo, Text: line})
			continue
		}

		res.Schools = append(res.Schools, s)
		if s.Number != nil {
			res.ByNumber[*s.Number] = s
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "rating: read input")
	}

	return res, nil
}

func parseLine(line, defaultCity string) (*model.School, bool) {
	var name, city string
	var value float64

	if m := rankedRe.FindStringSubmatch(line); m != nil {
		rank, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, false
		}
		// Ranks are negated so that bigger is better, as with scores.
		value = -float64(rank)
		name, city = m[2], defaultCity
	} else if m := scoredRe.FindStringSubmatch(line); m != nil {
		score, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, false
		}
		value = float64(score)
		name, city = m[1], defaultCity
	} else if m := tableRe.FindStringSubmatch(line); m != nil {
		score, err := strconv.ParseFloat(strings.Replace(m[3], ",", ".", 1), 64)
		if err != nil {
			return nil, false
		}
		value = score
		name, city = m[1], m[2]
	} else {
		return nil, false
	}

	name = collapseSpace(name)
	s := &model.School{
		Name:   name,
		City:   collapseSpace(city),
		Rating: value,
		Number: ExtractNumber(name),
	}
	return s, true
}

func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
