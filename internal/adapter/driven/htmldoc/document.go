// Package htmldoc implements the driven.Document port over a parsed HTML tree
// of GitHub's pull request files view.
package htmldoc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Document = (*Document)(nil)
	_ driven.FileMenu = (*fileMenu)(nil)
	_ driven.Button   = (*button)(nil)
)

// Document wraps a mutable HTML tree. Buttons inserted or updated by the
// button manager are written into the tree and can be read back with Render.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document or fragment.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// New wraps an already parsed tree.
func New(root *html.Node) *Document {
	return &Document{root: root}
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the tree, returning "" on failure.
func (d *Document) String() string {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return ""
	}
	return sb.String()
}

// FileMenus returns the action menu of every file row, in document order.
// File rows without a menu are skipped.
func (d *Document) FileMenus() []driven.FileMenu {
	var menus []driven.FileMenu
	for _, container := range outermost(d.root, selectors.fileContainer) {
		wrapper := findFirst(container, selectors.menuContainer)
		if wrapper == nil {
			continue
		}
		menu := findFirst(wrapper, selectors.menu)
		if menu == nil {
			continue
		}
		menus = append(menus, &fileMenu{container: container, menu: menu})
	}
	return menus
}

// outermost returns matches of m that are not nested inside another match.
func outermost(n *html.Node, m matcher) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m.matches(c) {
			out = append(out, c)
			continue
		}
		out = append(out, outermost(c, m)...)
	}
	return out
}

type fileMenu struct {
	container *html.Node
	menu      *html.Node
}

func (f *fileMenu) LinkText() string {
	if link := findFirst(f.container, selectors.primaryLink); link != nil {
		if text := textContent(link); text != "" {
			return text
		}
	}
	path, _ := attrValue(f.container, "data-path")
	return path
}

func (f *fileMenu) PreviewButton() driven.Button {
	if n := findFirst(f.menu, selectors.previewButton); n != nil {
		return &button{node: n}
	}
	return nil
}

func (f *fileMenu) InsertPreviewButton(view model.ButtonView) (driven.Button, bool) {
	var anchor *html.Node
	for _, m := range selectors.deleteAnchors {
		if anchor = findFirst(f.menu, m); anchor != nil {
			break
		}
	}
	if anchor == nil || anchor.Parent == nil {
		return nil, false
	}

	divider := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: dividerClasses},
			{Key: "role", Val: "separator"},
		},
	}
	btn := newButtonNode()

	parent := anchor.Parent
	parent.InsertBefore(divider, anchor.NextSibling)
	parent.InsertBefore(btn, divider.NextSibling)

	b := &button{node: btn}
	b.Render(view)
	return b, true
}

func newButtonNode() *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "button",
		DataAtom: atom.Button,
		Attr: []html.Attribute{
			{Key: "class", Val: buttonClasses},
			{Key: "role", Val: "menuitem"},
			{Key: "type", Val: "button"},
		},
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: buttonLabel})
	return n
}
