package models

// Settings bounds shared by the client and the backend.
const (
	MinWinners     = 1
	MaxWinners     = 5
	MinMinComments = 1
	MaxMinComments = 5
)

// Participant is one commenter on a post and how many comments they left.
type Participant struct {
	Username     string `json:"username" binding:"required"`
	CommentCount int    `json:"comment_count" binding:"min=1"`
}

// CommentSet is the deduplicated commenter list of a post,
// plus the raw comment total for display.
type CommentSet struct {
	Participants  []Participant
	TotalComments int
}

// GiveawaySettings are the user-chosen parameters of one draw.
type GiveawaySettings struct {
	WinnerCount int
	MinComments int
}

// DefaultSettings returns the settings every run starts with.
func DefaultSettings() GiveawaySettings {
	return GiveawaySettings{WinnerCount: MinWinners, MinComments: MinMinComments}
}

// Valid reports whether both values are within their allowed range.
func (s GiveawaySettings) Valid() bool {
	return s.WinnerCount >= MinWinners && s.WinnerCount <= MaxWinners &&
		s.MinComments >= MinMinComments && s.MinComments <= MaxMinComments
}

// WinnerList is the ordered list of winning usernames. Order is reveal order.
type WinnerList []string
