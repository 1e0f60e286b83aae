package rating

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TableRow is one school from a published rating table.
type TableRow struct {
	Name   string
	Region string
	City   string
	Rating string
}

// Line renders the row in the tab-separated layout Parse accepts. Whole
// scores get a ",0" suffix; a bare integer in the last column would read as
// the "<name><TAB><score>" layout instead.
func (r TableRow) Line(rank int) string {
	score := r.Rating
	if score != "" && !strings.ContainsAny(score, ",.") {
		score += ",0"
	}
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s", rank, r.Name, r.Region, r.City, score)
}

const (
	colName = iota
	colRegion
	colCity
	colRating
	numCols
)

func headerColumn(title string) int {
	switch title {
	case "Название", "Школа":
		return colName
	case "Субъект федерации", "Регион":
		return colRegion
	case "Город":
		return colCity
	case "Балл":
		return colRating
	}
	return -1
}

// ScrapeTable extracts rows from the first <table> of a rating page. Columns
// are located by their header titles; body cells are read from their
// data-content attribute, falling back to the cell text.
func ScrapeTable(r io.Reader) ([]TableRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "rating: parse html")
	}

	table := find(doc, atom.Table)
	if table == nil {
		return nil, eris.New("rating: no table in page")
	}

	toc := [numCols]int{-1, -1, -1, -1}
	if head := find(table, atom.Thead); head != nil {
		if tr := find(head, atom.Tr); tr != nil {
			for i, cell := range cells(tr) {
				if c := headerColumn(strings.TrimSpace(textOf(cell))); c >= 0 {
					toc[c] = i
				}
			}
		}
	}
	for c, idx := range toc {
		if idx < 0 {
			return nil, eris.Errorf("rating: table header lacks column %d", c)
		}
	}
	zap.L().Debug("rating: table columns", zap.Ints("toc", toc[:]))

	body := find(table, atom.Tbody)
	if body == nil {
		return nil, eris.New("rating: table has no body")
	}

	var rows []TableRow
	for tr := body.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.Type != html.ElementNode || tr.DataAtom != atom.Tr {
			continue
		}
		var fields []string
		for _, cell := range cells(tr) {
			fields = append(fields, cellValue(cell))
		}
		get := func(c int) string {
			if toc[c] < len(fields) {
				return fields[toc[c]]
			}
			return ""
		}
		row := TableRow{Name: get(colName), Region: get(colRegion), City: get(colCity), Rating: get(colRating)}
		if row.Name == "" {
			zap.L().Warn("rating: skipping table row without name", zap.Strings("fields", fields))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, a); f != nil {
			return f
		}
	}
	return nil
}

// cells returns the th and td children of a row in document order.
func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Th || c.DataAtom == atom.Td) {
			out = append(out, c)
		}
	}
	return out
}

func cellValue(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "data-content" {
			return collapseSpace(a.Val)
		}
	}
	return collapseSpace(textOf(n))
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
