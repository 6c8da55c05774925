package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"givegram/internal/models"
)

// DefaultSessionTTL is how long a backend session lives after login.
const DefaultSessionTTL = 30 * time.Minute

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found or has expired")

// UserSession is one logged-in platform account.
type UserSession struct {
	Username  string
	CreatedAt time.Time
	LastUsed  time.Time
}

// SessionStore maps backend session ids to logged-in platform accounts.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*UserSession // Key: session id

	platform Platform
	ttl      time.Duration
	now      func() time.Time
	janitor  *cron.Cron
}

// NewSessionStore creates an empty store that authenticates via platform.
// A zero ttl uses DefaultSessionTTL.
func NewSessionStore(platform Platform, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]*UserSession),
		platform: platform,
		ttl:      ttl,
		now:      time.Now,
	}
}

// LoginWithCookie authenticates cookie with the platform and opens a session.
func (s *SessionStore) LoginWithCookie(ctx context.Context, cookie string) (string, string, error) {
	username, err := s.platform.Login(ctx, cookie)
	if err != nil {
		return "", "", err
	}

	id := uuid.New().String()
	now := s.now()

	s.mu.Lock()
	s.sessions[id] = &UserSession{Username: username, CreatedAt: now, LastUsed: now}
	s.mu.Unlock()

	logger.Infof("Cookie login successful for user %q, session_id=%s", username, id)
	return id, username, nil
}

// Validate returns the username bound to id without contacting the platform.
func (s *SessionStore) Validate(id string) (string, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return sess.Username, nil
}

// lookup returns the live session for id and refreshes its LastUsed time.
// Sessions past their TTL are removed on access.
func (s *SessionStore) lookup(id string) (*UserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := s.now()
	if now.Sub(sess.CreatedAt) > s.ttl {
		delete(s.sessions, id)
		logger.Infof("Session %s expired, removing", id)
		return nil, ErrSessionNotFound
	}
	sess.LastUsed = now
	return sess, nil
}

// Remove deletes a session. Unknown ids are ignored.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		logger.Infof("Session %s removed (logout)", id)
	}
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupExpired removes every session past its TTL and returns the count.
func (s *SessionStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("Cleaned up %d expired session(s)", removed)
	}
	return removed
}

// StartJanitor runs CleanupExpired on the given cron schedule
// (for example "@every 5m") until Stop is called.
func (s *SessionStore) StartJanitor(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.CleanupExpired() }); err != nil {
		return fmt.Errorf("add cleanup job: %w", err)
	}

	s.mu.Lock()
	if s.janitor != nil {
		s.janitor.Stop()
	}
	s.janitor = c
	s.mu.Unlock()

	c.Start()
	logger.Infof("Started session cleanup (%s, ttl=%s)", schedule, s.ttl)
	return nil
}

// Stop halts the janitor, if running.
func (s *SessionStore) Stop() {
	s.mu.Lock()
	c := s.janitor
	s.janitor = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		logger.Infof("Stopped session cleanup")
	}
}

// FetchComments scrapes postURL with the account bound to id and returns
// the commenters with their comment counts.
func (s *SessionStore) FetchComments(ctx context.Context, id, postURL string) (models.FetchCommentsResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return models.FetchCommentsResponse{}, err
	}

	shortcode, err := models.ParsePostURL(postURL)
	if err != nil {
		return models.FetchCommentsResponse{}, err
	}

	comments, err := s.platform.Comments(ctx, sess.Username, shortcode)
	if err != nil {
		return models.FetchCommentsResponse{}, err
	}

	resp := models.FetchCommentsResponse{
		Users:         AggregateComments(comments),
		TotalComments: len(comments),
	}
	logger.Infof("Completed scraping %s: %d unique users, %d total comments", shortcode, len(resp.Users), resp.TotalComments)
	return resp, nil
}

// AggregateComments counts comments per user, sorted by username.
func AggregateComments(comments []Comment) []models.Participant {
	counts := make(map[string]int)
	for _, c := range comments {
		counts[c.Username]++
	}

	users := make([]models.Participant, 0, len(counts))
	for username, n := range counts {
		users = append(users, models.Participant{Username: username, CommentCount: n})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}
