// Package resource models the platform's openable content links as a
// tagged variant: every kind carries its own URL presentation rule
// instead of string-keyed branching at call sites.
package resource

import (
	"net/url"
	"strings"
)

type Kind int

const (
	KindVideo Kind = iota
	KindPDF
	KindQuiz
	KindFinalExam
	KindMeeting
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindPDF:
		return "pdf"
	case KindQuiz:
		return "quiz"
	case KindFinalExam:
		return "finalExam"
	case KindMeeting:
		return "meeting"
	}
	return "unknown"
}

// External reports whether the kind points at a third-party site the
// viewer should embed as-is rather than wrap in a document viewer.
func (k Kind) External() bool {
	return k == KindQuiz || k == KindFinalExam || k == KindMeeting
}

// Link is one openable resource.
type Link struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ViewerURL returns the URL to embed for this link. PDFs are routed
// through the Google Docs viewer, normalizing Google Drive file links to
// their /preview form first; every other kind passes through unchanged.
func (l Link) ViewerURL() string {
	if l.Kind != KindPDF {
		return l.URL
	}
	if !strings.HasSuffix(l.URL, ".pdf") && !strings.Contains(l.URL, "drive.google.com/file/d/") {
		// possibly a page embedding the PDF itself; embed directly
		return l.URL
	}
	return "https://docs.google.com/gview?url=" + url.QueryEscape(normalizeDriveURL(l.URL)) + "&embedded=true"
}

func normalizeDriveURL(raw string) string {
	if !strings.Contains(raw, "drive.google.com/file/d/") {
		return raw
	}
	u := strings.ReplaceAll(raw, "/view?usp=sharing", "")
	u = strings.ReplaceAll(u, "/edit?usp=sharing", "")
	if strings.Contains(u, "/preview") {
		return u
	}
	parts := strings.Split(raw, "/")
	for i, p := range parts {
		if p == "d" && i+1 < len(parts) {
			if fileID := strings.SplitN(parts[i+1], "?", 2)[0]; fileID != "" {
				return "https://drive.google.com/file/d/" + fileID + "/preview"
			}
		}
	}
	return u
}
