package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpener_Open(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://review.learn.microsoft.com/a?branch=pr-en-us-1"},
		{name: "http", url: "http://localhost:8080/x"},
		{name: "javascript scheme", url: "javascript:alert(1)", wantErr: true},
		{name: "relative", url: "/a/b", wantErr: true},
		{name: "unparseable", url: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opened []string
			o := &Opener{open: func(u string) error {
				opened = append(opened, u)
				return nil
			}}

			err := o.Open(tt.url)

			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, opened)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.url}, opened)
		})
	}
}

func TestOpener_OpenPropagatesFailure(t *testing.T) {
	o := &Opener{open: func(string) error { return errors.New("no display") }}

	err := o.Open("https://example.com")

	assert.ErrorContains(t, err, "no display")
}

func TestNewOpener_UsesLibraryLauncher(t *testing.T) {
	o := NewOpener(nil)
	assert.NotNil(t, o.open)
}
