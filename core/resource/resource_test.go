package resource

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "pdf", KindPDF.String())
	assert.Equal(t, "quiz", KindQuiz.String())
	assert.Equal(t, "finalExam", KindFinalExam.String())
	assert.Equal(t, "meeting", KindMeeting.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestKind_External(t *testing.T) {
	assert.False(t, KindVideo.External())
	assert.False(t, KindPDF.External())
	assert.True(t, KindQuiz.External())
	assert.True(t, KindFinalExam.External())
	assert.True(t, KindMeeting.External())
}

func TestLink_ViewerURL(t *testing.T) {
	gview := func(target string) string {
		return "https://docs.google.com/gview?url=" + url.QueryEscape(target) + "&embedded=true"
	}

	tests := []struct {
		name string
		link Link
		want string
	}{
		{
			name: "video passes through",
			link: Link{Kind: KindVideo, URL: "https://youtu.be/abc"},
			want: "https://youtu.be/abc",
		},
		{
			name: "quiz passes through",
			link: Link{Kind: KindQuiz, URL: "https://forms.example/q1"},
			want: "https://forms.example/q1",
		},
		{
			name: "plain pdf goes through the docs viewer",
			link: Link{Kind: KindPDF, URL: "https://host.example/worksheet.pdf"},
			want: gview("https://host.example/worksheet.pdf"),
		},
		{
			name: "drive share link is normalized to preview",
			link: Link{Kind: KindPDF, URL: "https://drive.google.com/file/d/abc123/view?usp=sharing"},
			want: gview("https://drive.google.com/file/d/abc123/preview"),
		},
		{
			name: "drive edit link is normalized to preview",
			link: Link{Kind: KindPDF, URL: "https://drive.google.com/file/d/abc123/edit?usp=sharing"},
			want: gview("https://drive.google.com/file/d/abc123/preview"),
		},
		{
			name: "drive preview link is kept",
			link: Link{Kind: KindPDF, URL: "https://drive.google.com/file/d/abc123/preview"},
			want: gview("https://drive.google.com/file/d/abc123/preview"),
		},
		{
			name: "non-pdf non-drive page embeds directly",
			link: Link{Kind: KindPDF, URL: "https://host.example/reader?id=42"},
			want: "https://host.example/reader?id=42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.ViewerURL())
		})
	}
}
