package settings

import (
	"github.com/go-playground/validator/v10"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/storage/docstore"
)

// ResourceLink is one named external link (a final exam or a meeting room).
type ResourceLink struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,httpurl"`
}

func (rl *ResourceLink) Validate(validate *validator.Validate) error {
	rl.Name = core.CleanString(rl.Name)
	rl.URL = core.CleanString(rl.URL)
	return validate.Struct(rl)
}

// Settings is the platform-wide singleton configuration document.
type Settings struct {
	SiteName          string         `json:"site_name"`
	TeacherAIToolsURL string         `json:"teacher_ai_tools_url"`
	StudentAIToolsURL string         `json:"student_ai_tools_url"`
	FinalExams        []ResourceLink `json:"final_exams_list"`
	MeetingRooms      []ResourceLink `json:"meeting_rooms_list"`
}

// UpdateSettings carries the editable scalar fields; lists are managed
// through their own add/remove operations.
type UpdateSettings struct {
	SiteName          string `json:"site_name"`
	TeacherAIToolsURL string `json:"teacher_ai_tools_url" validate:"httpurl"`
	StudentAIToolsURL string `json:"student_ai_tools_url" validate:"httpurl"`
}

func (us *UpdateSettings) Validate(validate *validator.Validate) error {
	us.SiteName = core.CleanString(us.SiteName)
	us.TeacherAIToolsURL = core.CleanString(us.TeacherAIToolsURL)
	us.StudentAIToolsURL = core.CleanString(us.StudentAIToolsURL)
	return validate.Struct(us)
}

const defaultAIToolsURL = "https://app.magicschool.ai/tools"

// Default is the document created lazily on the first read-miss.
func Default() Settings {
	return Settings{
		SiteName:          core.Conf.AppName,
		TeacherAIToolsURL: defaultAIToolsURL,
		StudentAIToolsURL: defaultAIToolsURL,
		FinalExams:        []ResourceLink{},
		MeetingRooms:      []ResourceLink{},
	}
}

func encode(s Settings) map[string]interface{} {
	return map[string]interface{}{
		"siteName":          s.SiteName,
		"teacherAiToolsUrl": s.TeacherAIToolsURL,
		"studentAiToolsUrl": s.StudentAIToolsURL,
		"finalExamsList":    encodeLinks(s.FinalExams),
		"meetingRoomsList":  encodeLinks(s.MeetingRooms),
	}
}

func encodeLinks(links []ResourceLink) []interface{} {
	out := make([]interface{}, 0, len(links))
	for _, l := range links {
		out = append(out, map[string]interface{}{"id": l.ID, "name": l.Name, "url": l.URL})
	}
	return out
}

// Decode maps the raw settings document onto a Settings.
func Decode(d docstore.Doc) Settings {
	return Settings{
		SiteName:          docstore.String(d.Data, "siteName"),
		TeacherAIToolsURL: docstore.String(d.Data, "teacherAiToolsUrl"),
		StudentAIToolsURL: docstore.String(d.Data, "studentAiToolsUrl"),
		FinalExams:        decodeLinks(d.Data, "finalExamsList"),
		MeetingRooms:      decodeLinks(d.Data, "meetingRoomsList"),
	}
}

func decodeLinks(data map[string]interface{}, key string) []ResourceLink {
	maps := docstore.MapSlice(data, key)
	out := make([]ResourceLink, 0, len(maps))
	for _, m := range maps {
		out = append(out, ResourceLink{
			ID:   docstore.String(m, "id"),
			Name: docstore.String(m, "name"),
			URL:  docstore.String(m, "url"),
		})
	}
	return out
}
