package services

import (
	"context"
	"errors"
)

// Errors a Platform reports. They map onto distinct HTTP statuses.
var (
	ErrLoginFailed  = errors.New("invalid or expired session cookie")
	ErrPostNotFound = errors.New("post not found")
	ErrPrivatePost  = errors.New("post is private")
	ErrRateLimited  = errors.New("rate limited by platform")
)

// Comment is one raw comment on a post. Only the author matters for the draw.
type Comment struct {
	Username string
}

// Platform is the upstream social platform: it turns a browser session
// cookie into an account and lists the comments of a post.
type Platform interface {
	Login(ctx context.Context, cookie string) (username string, err error)
	Comments(ctx context.Context, username, shortcode string) ([]Comment, error)
}
