package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"social-hub/models"
)

// Frame types shared by client and server.
const (
	FrameAuth    = "auth"
	FrameMessage = "message"
	FrameError   = "error"
)

const (
	errTextInvalidFormat  = "Invalid message format"
	errTextNotParticipant = "You are not a participant of this conversation"
	errTextSendFailed     = "Failed to send message"
)

type frameEnvelope struct {
	Type string `json:"type"`
}

// AuthFrame binds a connection to a user. Token mode requires Token; trust mode UserID.
type AuthFrame struct {
	Type   string `json:"type"`
	UserID uint   `json:"userId,omitempty"`
	Token  string `json:"token,omitempty"`
}

// ChatFrame asks the server to persist and fan out a message.
type ChatFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"required,max=4000"`
}

type authAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

// MessageFrame is the fan-out payload; Message has the REST record layout.
type MessageFrame struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var frameValidate = newFrameValidator()

func newFrameValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeChatFrame parses and validates a message frame. Returned errors are safe to show to the sender.
func decodeChatFrame(data []byte) (ChatFrame, error) {
	var f ChatFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, errors.New(errTextInvalidFormat)
	}
	f.Content = strings.TrimSpace(f.Content)
	if err := frameValidate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return f, errors.New(describeFieldError(verrs[0]))
		}
		return f, errors.New(errTextInvalidFormat)
	}
	return f, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// frameErrorText maps a send failure to the text of an error frame.
func frameErrorText(err error) string {
	switch {
	case errors.Is(err, ErrNotParticipant):
		return errTextNotParticipant
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return errTextSendFailed
	}
}
