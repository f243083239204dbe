package htmldoc

import (
	"golang.org/x/net/html"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Rendered state is kept in data attributes so it survives a round trip
// through the host page.
const (
	attrFile       = "data-file"
	attrGate       = "data-gate"
	attrReason     = "data-reason"
	attrPreviewURL = "data-preview-url"
)

type button struct {
	node *html.Node
}

func (b *button) View() model.ButtonView {
	file, _ := attrValue(b.node, attrFile)
	gate, _ := attrValue(b.node, attrGate)
	reason, _ := attrValue(b.node, attrReason)
	url, _ := attrValue(b.node, attrPreviewURL)
	return model.ButtonView{
		File:       file,
		Gate:       model.ParseGate(gate),
		Reason:     reason,
		PreviewURL: url,
	}
}

func (b *button) Render(view model.ButtonView) {
	n := b.node
	setAttr(n, attrFile, view.File)
	setAttr(n, attrGate, view.Gate.String())

	if view.PreviewURL != "" {
		setAttr(n, attrPreviewURL, view.PreviewURL)
	} else {
		removeAttr(n, attrPreviewURL)
	}

	if view.Enabled() {
		removeAttr(n, "disabled")
		removeAttr(n, "aria-disabled")
		removeAttr(n, attrReason)
		removeAttr(n, "title")
		return
	}

	setAttr(n, "disabled", "")
	setAttr(n, "aria-disabled", "true")
	setAttr(n, attrReason, view.Reason)
	setAttr(n, "title", view.Reason)
}

func (b *button) Replace() driven.Button {
	old := b.node
	fresh := newButtonNode()
	for _, a := range old.Attr {
		setAttr(fresh, a.Key, a.Val)
	}

	if parent := old.Parent; parent != nil {
		parent.InsertBefore(fresh, old)
		parent.RemoveChild(old)
	}

	return &button{node: fresh}
}
