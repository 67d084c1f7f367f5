package models

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	History   []Message `json:"history"`
	TripInfo  *TripInfo `json:"trip_info"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
