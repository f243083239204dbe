package driven

import "github.com/ericfisherdev/learnpreview/internal/domain/model"

// Document is the host page as seen by the button lifecycle manager. The host
// (GitHub's PR files view) may add, remove or replace file rows at any time,
// so implementations return a fresh view on every call.
type Document interface {
	FileMenus() []FileMenu
}

// FileMenu is the action menu of one file row.
type FileMenu interface {
	// LinkText returns the text of the file header's primary link, which
	// encodes "old → new" for renamed files.
	LinkText() string
	// PreviewButton returns the menu's preview button, or nil if none exists.
	PreviewButton() Button
	// InsertPreviewButton inserts a divider and a preview button after the
	// menu's delete-file item. It returns false when the anchor item is
	// missing. Callers must check PreviewButton first.
	InsertPreviewButton(view model.ButtonView) (Button, bool)
}

// Button is a rendered preview button.
type Button interface {
	// View returns the state currently rendered on the element.
	View() model.ButtonView
	// Render updates the element in place.
	Render(view model.ButtonView)
	// Replace swaps the element for a fresh copy (dropping any attached
	// listeners) carrying the same rendered state.
	Replace() Button
}

// URLOpener opens a URL in a new browsing context.
type URLOpener interface {
	Open(url string) error
}
