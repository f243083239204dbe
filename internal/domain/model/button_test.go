package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

func TestFileNameFromLinkText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"articles/index.md", "articles/index.md"},
		{"  articles/index.md\n", "articles/index.md"},
		{"old/path.md → new/path.md", "new/path.md"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, model.FileNameFromLinkText(tt.text))
		})
	}
}

func TestButtonView_Enabled(t *testing.T) {
	assert.True(t, model.ButtonView{Gate: model.GateEnabled, PreviewURL: "https://review.learn/x"}.Enabled())
	assert.False(t, model.ButtonView{Gate: model.GateEnabled}.Enabled())
	assert.False(t, model.ButtonView{Gate: model.GateBuildFailed, PreviewURL: "https://review.learn/x"}.Enabled())
}

func TestButtonState_Reason(t *testing.T) {
	s := model.ButtonState{Gate: model.GateEnabled}
	assert.False(t, s.Disabled())
	assert.Empty(t, s.Reason())

	s.Gate = model.GateNeedsAuth
	assert.True(t, s.Disabled())
	assert.Equal(t, model.GateNeedsAuth.Message(), s.Reason())
}

func TestBuildReport_Lookup(t *testing.T) {
	var nilReport *model.BuildReport
	_, ok := nilReport.Lookup("a.md")
	assert.False(t, ok)

	r := &model.BuildReport{Links: model.PreviewLinks{"a.md": "https://review.learn/a", "empty.md": ""}}

	u, ok := r.Lookup("a.md")
	assert.True(t, ok)
	assert.Equal(t, "https://review.learn/a", u)

	_, ok = r.Lookup("empty.md")
	assert.False(t, ok)
	_, ok = r.Lookup("missing.md")
	assert.False(t, ok)
}
