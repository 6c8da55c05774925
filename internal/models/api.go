package models

// Wire types for the /api endpoints. Field names follow the backend's JSON.

// LoginRequest authenticates with a platform session cookie.
type LoginRequest struct {
	SessionCookie string `json:"session_cookie" binding:"required"`
}

// LoginResponse carries the backend-issued session handle.
type LoginResponse struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

// ValidateSessionRequest checks a stored handle without contacting the platform.
type ValidateSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// ValidateSessionResponse echoes the account bound to a live handle.
type ValidateSessionResponse struct {
	Username string `json:"username"`
}

// FetchCommentsRequest asks for the commenters of one post.
type FetchCommentsRequest struct {
	URL       string `json:"url" binding:"required,url"`
	SessionID string `json:"session_id" binding:"required"`
}

// FetchCommentsResponse is the aggregated commenter list.
type FetchCommentsResponse struct {
	Users         []Participant `json:"users"`
	TotalComments int           `json:"total_comments"`
}

// PickWinnersRequest carries the participants and the draw settings.
type PickWinnersRequest struct {
	Users       []Participant `json:"users" binding:"dive"`
	NumWinners  int           `json:"num_winners" binding:"min=1,max=5"`
	MinComments int           `json:"min_comments" binding:"min=1,max=5"`
}

// PickWinnersResponse lists the selected usernames in draw order.
type PickWinnersResponse struct {
	Winners []string `json:"winners"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
