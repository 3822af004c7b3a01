package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHTML(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "empty", src: "", want: ""},
		{name: "bold", src: "📋 **Bytte maintenance**", want: "📋 <strong>Bytte maintenance</strong>"},
		{name: "paragraphs", src: "Status: ✅ success\n\nStage: report", want: "Status: ✅ success\n\nStage: report"},
		{name: "strips block markup", src: "# Title", want: "Title"},
		{name: "soft breaks kept", src: "Status: ✅ success\nStage: report", want: "Status: ✅ success\nStage: report"},
		{name: "keeps http links", src: "[panel](https://panel.example.test)", want: `<a href="https://panel.example.test">panel</a>`},
		{name: "inline code", src: "`code`", want: "<code>code</code>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderHTML(tt.src))
		})
	}
}
