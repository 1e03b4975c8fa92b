package lesson

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/resource"
)

// Lesson is one unit of course content: a title plus optional resource
// links. LessonNumber drives display ordering and is not required to be
// unique.
type Lesson struct {
	ID           string    `json:"id"`
	LessonNumber int       `json:"lesson_number"`
	Title        string    `json:"title"`
	VideoURL     string    `json:"video_url,omitempty"`
	PDFURL       string    `json:"pdf_url,omitempty"`
	QuizURL      string    `json:"quiz_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Resources lists the lesson's openable content links in display order,
// skipping the ones that were left empty.
func (l Lesson) Resources() []resource.Link {
	links := make([]resource.Link, 0, 3)
	if l.VideoURL != "" {
		links = append(links, resource.Link{Kind: resource.KindVideo, Title: l.Title, URL: l.VideoURL})
	}
	if l.PDFURL != "" {
		links = append(links, resource.Link{Kind: resource.KindPDF, Title: l.Title, URL: l.PDFURL})
	}
	if l.QuizURL != "" {
		links = append(links, resource.Link{Kind: resource.KindQuiz, Title: l.Title, URL: l.QuizURL})
	}
	return links
}

// NewLesson contains information needed to create or update a Lesson.
type NewLesson struct {
	LessonNumber int    `json:"lesson_number" validate:"required,min=1"`
	Title        string `json:"title" validate:"required"`
	VideoURL     string `json:"video_url" validate:"httpurl"`
	PDFURL       string `json:"pdf_url" validate:"httpurl"`
	QuizURL      string `json:"quiz_url" validate:"httpurl"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	nl.PDFURL = core.CleanString(nl.PDFURL)
	nl.QuizURL = core.CleanString(nl.QuizURL)
	return validate.Struct(nl)
}
