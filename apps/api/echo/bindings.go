package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/maharatedu/platform/core"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	SendMessageRequest struct {
		ReceiverID string `json:"receiver_id" validate:"required"`
		Message    string `json:"message" validate:"required"`
	}

	MassMessageRequest struct {
		ReceiverIDs []string `json:"receiver_ids" validate:"required,min=1"`
		Message     string   `json:"message" validate:"required"`
	}

	MessageIDsRequest struct {
		MessageIDs []string `json:"message_ids" validate:"required,min=1"`
	}

	CompleteLessonRequest struct {
		LessonID string `json:"lesson_id" validate:"required"`
	}

	CompleteLessonResponse struct {
		Completed bool `json:"completed"`
		Percent   int  `json:"percent"`
	}

	UnreadCountResponse struct {
		Unread int `json:"unread"`
	}

	ResourceResponse struct {
		Kind      string `json:"kind"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		ViewerURL string `json:"viewer_url"`
		External  bool   `json:"external"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *SendMessageRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *MassMessageRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *MessageIDsRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *CompleteLessonRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
