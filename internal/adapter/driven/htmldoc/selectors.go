package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// matcher is a minimal element selector: tag, class and attribute equality,
// each optional.
type matcher struct {
	tag   atom.Atom
	class string
	attr  string
	value string // Empty means "attribute present".
}

func (m matcher) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if m.tag != 0 && n.DataAtom != m.tag {
		return false
	}
	if m.class != "" && !hasClass(n, m.class) {
		return false
	}
	if m.attr != "" {
		v, ok := attrValue(n, m.attr)
		if !ok || (m.value != "" && v != m.value) {
			return false
		}
	}
	return true
}

// GitHub's PR files view. Every selector the adapter depends on lives here.
var selectors = struct {
	fileContainer matcher   // one per file row
	menuContainer matcher   // file header dropdown wrapper
	menu          matcher   // the dropdown list inside it
	primaryLink   matcher   // file header link; text is "old → new" for renames
	deleteAnchors []matcher // stable item the preview button is inserted after
	previewButton matcher
}{
	fileContainer: matcher{attr: "data-path"},
	menuContainer: matcher{class: "js-file-header-dropdown"},
	menu:          matcher{class: "dropdown-menu"},
	primaryLink:   matcher{class: "Link--primary"},
	deleteAnchors: []matcher{
		{tag: atom.A, attr: "aria-label", value: "Delete this file"},
		{tag: atom.Button, attr: "aria-label", value: "You must be signed in and have push access to delete this file."},
	},
	previewButton: matcher{tag: atom.Button, class: buttonClass},
}

const (
	buttonClass    = "preview-on-learn"
	buttonClasses  = "pl-5 dropdown-item btn-link " + buttonClass
	buttonLabel    = "Preview on Learn"
	dividerClasses = "dropdown-divider"
)

// findAll returns every descendant of n matching m, in document order.
func findAll(n *html.Node, m matcher) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m.matches(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, m)...)
	}
	return out
}

// findFirst returns the first descendant of n matching m.
func findFirst(n *html.Node, m matcher) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m.matches(c) {
			return c
		}
		if found := findFirst(c, m); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attrValue(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
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
	return strings.TrimSpace(sb.String())
}
