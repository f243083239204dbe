package buildreport

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

const (
	reportTableClass   = "MsoNormalTable"
	fileHeader         = "File"
	previewHeaderLabel = "Preview URL"
	minRowCells        = 3
)

// linkColumns records where the file and preview anchors live in a table.
type linkColumns struct {
	file    int
	preview int
}

// ExtractPreviewLinks finds the report table whose header row names a "File"
// column and a "Preview URL" column, and maps each row's file anchor text to
// its preview anchor href. Rows missing either anchor are skipped. It returns
// driven.ErrNoPreviewLinks when no table matches or no pairs were extracted.
func ExtractPreviewLinks(doc *html.Node) (model.PreviewLinks, error) {
	if doc == nil {
		return nil, driven.ErrNoPreviewLinks
	}

	tables := findTables(doc, reportTableClass)
	if len(tables) == 0 {
		tables = findTables(doc, "")
	}

	for _, table := range tables {
		rows := tableRows(table)
		if len(rows) == 0 {
			continue
		}

		cols, ok := headerColumns(rows[0])
		if !ok {
			continue
		}

		links := make(model.PreviewLinks)
		for _, row := range rows[1:] {
			file, href, ok := rowLink(row, cols)
			if ok {
				links[file] = href
			}
		}

		if len(links) == 0 {
			return nil, driven.ErrNoPreviewLinks
		}
		return links, nil
	}

	return nil, driven.ErrNoPreviewLinks
}

// headerColumns locates the file and preview columns by name.
func headerColumns(row *html.Node) (linkColumns, bool) {
	cols := linkColumns{file: -1, preview: -1}
	for i, cell := range rowCells(row) {
		text := nodeText(cell)
		switch {
		case cols.file < 0 && text == fileHeader:
			cols.file = i
		case cols.preview < 0 && strings.Contains(text, previewHeaderLabel):
			cols.preview = i
		}
	}
	return cols, cols.file >= 0 && cols.preview >= 0
}

func rowLink(row *html.Node, cols linkColumns) (string, string, bool) {
	cells := rowCells(row)
	if len(cells) < minRowCells || len(cells) <= max(cols.file, cols.preview) {
		return "", "", false
	}

	fileAnchor := findFirst(cells[cols.file], atom.A)
	previewAnchor := findFirst(cells[cols.preview], atom.A)
	if fileAnchor == nil || previewAnchor == nil {
		return "", "", false
	}

	file := nodeText(fileAnchor)
	href := strings.TrimSpace(attr(previewAnchor, "href"))
	if file == "" || href == "" {
		return "", "", false
	}
	return file, href, true
}

// findTables returns every table element, or only those carrying class when
// class is non-empty. Nested tables are included.
func findTables(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			if class == "" || hasClass(n, class) {
				out = append(out, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// tableRows returns the rows that belong to table itself, not to tables
// nested inside its cells.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// nodeText returns the whitespace-collapsed text content of n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
