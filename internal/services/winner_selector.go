package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"givegram/internal/models"
)

// InsufficientEligibleError is returned when fewer users qualify than
// winners were requested. Its message is meant for the end user.
type InsufficientEligibleError struct {
	Eligible    int
	MinComments int
	Requested   int
}

func (e *InsufficientEligibleError) Error() string {
	return fmt.Sprintf("Only %d user(s) meet the minimum of %d comment(s), but %d winner(s) requested. Try lowering the minimum-comment threshold.",
		e.Eligible, e.MinComments, e.Requested)
}

// FilterEligible returns the users with at least minComments comments.
func FilterEligible(users []models.Participant, minComments int) []models.Participant {
	var eligible []models.Participant
	for _, u := range users {
		if u.CommentCount >= minComments {
			eligible = append(eligible, u)
		}
	}
	return eligible
}

// WinnerSelector draws winners from a commenter list. It is safe for
// concurrent use.
type WinnerSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWinnerSelector creates a selector. A nil rng is seeded from the clock.
func NewWinnerSelector(rng *rand.Rand) *WinnerSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &WinnerSelector{rng: rng}
}

// PickWinners samples numWinners distinct eligible usernames in draw order.
func (w *WinnerSelector) PickWinners(users []models.Participant, numWinners, minComments int) ([]string, error) {
	eligible := FilterEligible(users, minComments)
	if len(eligible) < numWinners {
		return nil, &InsufficientEligibleError{Eligible: len(eligible), MinComments: minComments, Requested: numWinners}
	}

	w.mu.Lock()
	perm := w.rng.Perm(len(eligible))
	w.mu.Unlock()

	winners := make([]string, 0, numWinners)
	for _, idx := range perm[:numWinners] {
		winners = append(winners, eligible[idx].Username)
	}
	return winners, nil
}
