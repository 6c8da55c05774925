// Package giveaway sequences one giveaway run: fetch the commenters of a
// post, collect settings, draw winners and reveal them one by one.
package giveaway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/logger"

	"givegram/internal/apiclient"
	"givegram/internal/failure"
	"givegram/internal/models"
	"givegram/internal/reveal"
)

// State is the position of the run in its flow.
type State int

const (
	Idle State = iota
	AwaitingComments
	Settings
	AwaitingSelection
	Revealing
	Results
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingComments:
		return "awaiting comments"
	case Settings:
		return "settings"
	case AwaitingSelection:
		return "awaiting selection"
	case Revealing:
		return "revealing"
	case Results:
		return "results"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrBusy is returned when an action is triggered while another is in flight.
	ErrBusy = errors.New("an operation is already in progress")
	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// View is a snapshot of everything a screen needs to render the run.
type View struct {
	State         State
	RevealIndex   int
	PostRef       string
	Participants  []models.Participant
	TotalComments int
	Settings      models.GiveawaySettings
	Winners       models.WinnerList
	Err           string
	Busy          bool
}

// Controller owns the single active run. It reads the session handle for
// outgoing calls but never changes it.
type Controller struct {
	api      apiclient.API
	sessions Recoverer
	seq      *reveal.Sequencer

	mu   sync.Mutex
	view View
}

// NewController creates a controller in the Idle state.
func NewController(api apiclient.API, sessions Recoverer, seq *reveal.Sequencer) *Controller {
	return &Controller{
		api:      api,
		sessions: sessions,
		seq:      seq,
		view:     View{State: Idle, Settings: models.DefaultSettings()},
	}
}

// View returns a copy of the current run state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view
	v.Participants = append([]models.Participant(nil), c.view.Participants...)
	v.Winners = append(models.WinnerList(nil), c.view.Winners...)
	return v
}

// check reports whether an action starting from state from may run now.
func (c *Controller) check(from State) error {
	if c.view.Busy {
		return ErrBusy
	}
	if c.view.State != from {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, c.view.State)
	}
	return nil
}

// enter moves to state to and marks an action in flight.
func (c *Controller) enter(to State) {
	c.view.State = to
	c.view.Busy = true
	c.view.Err = ""
}

// SubmitPost validates postRef and fetches its commenters. Malformed
// references are rejected without a network call and leave the state as is.
func (c *Controller) SubmitPost(ctx context.Context, postRef string) error {
	c.mu.Lock()
	if err := c.check(Idle); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, err := models.ParsePostURL(postRef); err != nil {
		verr := failure.NewValidation("Please enter a valid Instagram post URL (e.g. https://www.instagram.com/p/ABC123/).")
		c.view.Err = verr.Detail
		c.mu.Unlock()
		return verr
	}
	c.enter(AwaitingComments)
	c.view.PostRef = postRef
	c.mu.Unlock()

	set, err := WithReauth(ctx, c.sessions, func(ctx context.Context, handle string) (models.CommentSet, error) {
		return c.api.FetchComments(ctx, postRef, handle)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Busy = false

	if err != nil {
		c.view.State = Idle
		c.view.Err = errorText(err)
		logger.Warningf("Fetching comments for %s failed: %v", postRef, err)
		return err
	}

	c.view.State = Settings
	c.view.Participants = set.Participants
	c.view.TotalComments = set.TotalComments
	c.view.Settings = models.DefaultSettings()
	logger.Infof("Fetched %d commenter(s), %d comment(s) for %s", len(set.Participants), set.TotalComments, postRef)
	return nil
}

// UpdateSettings replaces the draw settings while on the settings screen.
func (c *Controller) UpdateSettings(s models.GiveawaySettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check(Settings); err != nil {
		return err
	}
	if !s.Valid() {
		return failure.NewValidation(fmt.Sprintf("Winners and minimum comments must be between %d and %d.", models.MinWinners, models.MaxWinners))
	}
	c.view.Settings = s
	return nil
}

// Run draws winners with the current settings and reveals them through obs.
// A selection failure returns to Settings with the error shown and nothing
// lost. Cancelling ctx during the reveal stops the animation and jumps
// straight to Results.
func (c *Controller) Run(ctx context.Context, obs reveal.Observer) error {
	c.mu.Lock()
	if err := c.check(Settings); err != nil {
		c.mu.Unlock()
		return err
	}
	c.enter(AwaitingSelection)
	participants := c.view.Participants
	settings := c.view.Settings
	c.mu.Unlock()

	winners, err := c.api.SelectWinners(ctx, participants, settings)

	c.mu.Lock()
	if err != nil {
		c.view.State = Settings
		c.view.Busy = false
		c.view.Err = errorText(err)
		c.mu.Unlock()
		logger.Warningf("Winner selection failed: %v", err)
		return err
	}
	c.view.Winners = winners
	c.view.State = Revealing
	c.view.RevealIndex = 0
	c.mu.Unlock()

	logger.Infof("Selected %d winner(s)", len(winners))

	if len(winners) > 0 {
		err = c.seq.Run(ctx, winners, c.tracking(obs))
		if err != nil {
			logger.Infof("Reveal interrupted: %v", err)
		}
	}

	c.mu.Lock()
	c.view.State = Results
	c.view.Busy = false
	c.mu.Unlock()
	return nil
}

// tracking keeps RevealIndex in step with the sequencer before forwarding
// events to obs.
func (c *Controller) tracking(obs reveal.Observer) reveal.Observer {
	if obs == nil {
		obs = reveal.Funcs{}
	}
	return reveal.Funcs{
		Tick: func(t reveal.Tick) {
			c.mu.Lock()
			c.view.RevealIndex = t.Index
			c.mu.Unlock()
			obs.OnTick(t)
		},
		Reveal: obs.OnReveal,
	}
}

// RunAgain discards the finished run and returns to Idle. The session is
// left untouched.
func (c *Controller) RunAgain() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check(Results); err != nil {
		return err
	}
	c.view = View{State: Idle, Settings: models.DefaultSettings()}
	return nil
}

// ClearError drops the error text shown on the current screen, for example
// once the user has logged in again after a failed recovery.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Err = ""
}

func errorText(err error) string {
	var lre *LoginRequiredError
	if errors.As(err, &lre) {
		if msg := lre.Reason.Message(); msg != "" {
			return msg
		}
		return "Please log in to continue."
	}
	return failure.Detail(err)
}
