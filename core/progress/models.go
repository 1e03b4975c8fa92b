package progress

import (
	"math"

	"github.com/maharatedu/platform/storage/docstore"
)

// Progress is one student's completion record. CompletedLessons is treated
// as a set of lesson ids; all writes to it are additive set-unions.
type Progress struct {
	StudentID        string   `json:"student_id"`
	StudentName      string   `json:"student_name"`
	CompletedLessons []string `json:"completed_lessons"`
}

func (p Progress) Completed(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// Percent computes the completion percentage, rounded half away from zero.
// A catalog with no lessons reports 0.
func Percent(lessonCount, completedCount int) int {
	if lessonCount <= 0 {
		return 0
	}
	return int(math.Round(float64(completedCount) / float64(lessonCount) * 100))
}

// Decode maps a raw progress document onto a Progress.
func Decode(d docstore.Doc) Progress {
	return Progress{
		StudentID:        d.ID,
		StudentName:      docstore.String(d.Data, "studentName"),
		CompletedLessons: docstore.StringSlice(d.Data, "completedLessons"),
	}
}
