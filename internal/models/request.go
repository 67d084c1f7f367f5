package models

type ChatRequest struct {
	SessionID      string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	Message        string `json:"message" validate:"required_without=SelectedOption,max=2000"`
	SelectedOption string `json:"selected_option,omitempty" validate:"max=200"`
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingMessage ValidationError = "message is required"
)
