// Package apiclienttest provides a scriptable in-memory apiclient.API for tests.
package apiclienttest

import (
	"context"
	"fmt"
	"sync"

	"givegram/internal/failure"
	"givegram/internal/models"
)

// Fake is an apiclient.API whose behaviour is set through its fields.
// Queued errors are consumed one per call before the default behaviour applies.
type Fake struct {
	mu sync.Mutex

	// Credentials maps accepted credentials to usernames.
	Credentials map[string]string
	// Handles is the set of handles Validate and FetchComments accept.
	Handles map[string]string

	Comments models.CommentSet
	Winners  models.WinnerList

	AuthenticateErrs  []error
	InvalidateErrs    []error
	ValidateErrs      []error
	FetchCommentsErrs []error
	SelectWinnersErrs []error

	Calls    map[string]int
	LastPost string
	next     int
}

// New returns a Fake that accepts credential and knows no handles.
func New(credential, username string) *Fake {
	return &Fake{
		Credentials: map[string]string{credential: username},
		Handles:     make(map[string]string),
		Calls:       make(map[string]int),
	}
}

// Issue registers handle as live for username, as if a prior login happened.
func (f *Fake) Issue(handle, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Handles[handle] = username
}

// Expire forgets every live handle.
func (f *Fake) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Handles = make(map[string]string)
}

// Count returns how many times op was called.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *Fake) record(op string, queue *[]error) error {
	f.Calls[op]++
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (f *Fake) Authenticate(_ context.Context, credential string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("authenticate", &f.AuthenticateErrs); err != nil {
		return "", "", err
	}
	username, ok := f.Credentials[credential]
	if !ok {
		return "", "", failure.NewUnauthorized(401, "Invalid or expired session cookie.")
	}
	f.next++
	handle := fmt.Sprintf("handle-%d", f.next)
	f.Handles[handle] = username
	return handle, username, nil
}

func (f *Fake) Invalidate(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("invalidate", &f.InvalidateErrs); err != nil {
		return err
	}
	delete(f.Handles, handle)
	return nil
}

func (f *Fake) Validate(_ context.Context, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("validate", &f.ValidateErrs); err != nil {
		return "", err
	}
	username, ok := f.Handles[handle]
	if !ok {
		return "", failure.NewUnauthorized(401, "Session not found or has expired. Please log in again.")
	}
	return username, nil
}

func (f *Fake) FetchComments(_ context.Context, postRef, handle string) (models.CommentSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastPost = postRef
	if err := f.record("fetchComments", &f.FetchCommentsErrs); err != nil {
		return models.CommentSet{}, err
	}
	if _, ok := f.Handles[handle]; !ok {
		return models.CommentSet{}, failure.NewUnauthorized(401, "Session not found or has expired. Please log in again.")
	}
	return f.Comments, nil
}

func (f *Fake) SelectWinners(_ context.Context, _ []models.Participant, _ models.GiveawaySettings) (models.WinnerList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("selectWinners", &f.SelectWinnersErrs); err != nil {
		return nil, err
	}
	return f.Winners, nil
}
