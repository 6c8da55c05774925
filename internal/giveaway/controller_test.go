package giveaway

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"givegram/internal/apiclient/apiclienttest"
	"givegram/internal/failure"
	"givegram/internal/models"
	"givegram/internal/persist"
	"givegram/internal/reveal"
	"givegram/internal/session"
)

const testPost = "https://www.instagram.com/p/ABC123/"

type harness struct {
	api      *apiclienttest.Fake
	store    *persist.MemoryStore
	sessions *session.Manager
	ctrl     *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := apiclienttest.New("good-cookie", "host")
	api.Comments = models.CommentSet{
		Participants: []models.Participant{
			{Username: "alice", CommentCount: 3},
			{Username: "bob", CommentCount: 1},
			{Username: "cara", CommentCount: 2},
		},
		TotalComments: 6,
	}
	api.Winners = models.WinnerList{"alice", "bob", "cara"}

	store := persist.NewMemoryStore()
	sessions := session.NewManager(api, store)
	if _, err := sessions.Login(context.Background(), "good-cookie"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	seq := reveal.New(reveal.NewVirtualClock(time.Unix(0, 0)), rand.New(rand.NewSource(3)), reveal.Config{})
	return &harness{api: api, store: store, sessions: sessions, ctrl: NewController(api, sessions, seq)}
}

func TestController_FullRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.ctrl.SubmitPost(ctx, testPost); err != nil {
		t.Fatalf("SubmitPost() error = %v", err)
	}
	v := h.ctrl.View()
	if v.State != Settings || len(v.Participants) != 3 || v.TotalComments != 6 {
		t.Fatalf("after fetch view = %+v", v)
	}
	if v.Settings != models.DefaultSettings() {
		t.Errorf("Expected default settings, but got %+v", v.Settings)
	}

	if err := h.ctrl.UpdateSettings(models.GiveawaySettings{WinnerCount: 3, MinComments: 1}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	var revealed []string
	var indexes []int
	obs := reveal.Funcs{
		Tick: func(tk reveal.Tick) {
			if got := h.ctrl.View(); got.State != Revealing || got.RevealIndex != tk.Index {
				t.Errorf("during tick view = (%v, %d), want (revealing, %d)", got.State, got.RevealIndex, tk.Index)
			}
		},
		Reveal: func(r reveal.Reveal) {
			revealed = append(revealed, r.Winner)
			indexes = append(indexes, r.Index)
		},
	}
	if err := h.ctrl.Run(ctx, obs); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"alice", "bob", "cara"}
	if len(revealed) != 3 {
		t.Fatalf("Expected 3 reveals, but got %v", revealed)
	}
	for i := range want {
		if revealed[i] != want[i] || indexes[i] != i {
			t.Errorf("reveal %d = %q (index %d), want %q", i, revealed[i], indexes[i], want[i])
		}
	}

	v = h.ctrl.View()
	if v.State != Results || v.Busy {
		t.Fatalf("Expected Results and not busy, but got %+v", v)
	}

	handle := h.sessions.Handle()
	if err := h.ctrl.RunAgain(); err != nil {
		t.Fatalf("RunAgain() error = %v", err)
	}
	v = h.ctrl.View()
	if v.State != Idle || len(v.Participants) != 0 || len(v.Winners) != 0 || v.Err != "" {
		t.Errorf("after RunAgain view = %+v", v)
	}
	if v.Settings.WinnerCount != 1 || v.Settings.MinComments != 1 {
		t.Errorf("Expected settings {1,1}, but got %+v", v.Settings)
	}
	if h.sessions.Handle() != handle {
		t.Error("Expected session handle to survive RunAgain")
	}
	if _, err := h.api.Validate(ctx, handle); err != nil {
		t.Errorf("Expected handle to remain valid, but got %v", err)
	}
}

func TestController_MalformedPostNeverCallsNetwork(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.SubmitPost(context.Background(), "not-a-url")
	if !failure.IsValidation(err) {
		t.Fatalf("Expected Validation error, but got %v", err)
	}
	if h.api.Count("fetchComments") != 0 {
		t.Errorf("Expected no fetch call, but got %d", h.api.Count("fetchComments"))
	}
	v := h.ctrl.View()
	if v.State != Idle || v.Err == "" || v.Busy {
		t.Errorf("Expected Idle with message and not busy, but got %+v", v)
	}
}

func TestController_RetriesOnceAfterReauth(t *testing.T) {
	h := newHarness(t)
	h.api.FetchCommentsErrs = []error{failure.NewUnauthorized(401, "Session has expired. Please log in again.")}
	before := h.sessions.Handle()

	if err := h.ctrl.SubmitPost(context.Background(), testPost); err != nil {
		t.Fatalf("Expected transparent recovery, but got %v", err)
	}

	if got := h.api.Count("fetchComments"); got != 2 {
		t.Errorf("Expected 2 fetch calls (first attempt + one retry), but got %d", got)
	}
	if got := h.api.Count("authenticate"); got != 2 {
		t.Errorf("Expected 2 authenticate calls (login + reauth), but got %d", got)
	}
	if h.sessions.Handle() == before {
		t.Error("Expected a new session handle after reauth")
	}
	if h.api.LastPost != testPost {
		t.Errorf("retried post = %q, want %q", h.api.LastPost, testPost)
	}
	if v := h.ctrl.View(); v.State != Settings {
		t.Errorf("Expected Settings, but got %v", v.State)
	}
}

func TestController_SecondUnauthorizedIsNotRetried(t *testing.T) {
	h := newHarness(t)
	unauthorized := failure.NewUnauthorized(401, "expired")
	h.api.FetchCommentsErrs = []error{unauthorized, unauthorized}

	err := h.ctrl.SubmitPost(context.Background(), testPost)
	if !failure.IsUnauthorized(err) {
		t.Fatalf("Expected Unauthorized, but got %v", err)
	}
	if got := h.api.Count("fetchComments"); got != 2 {
		t.Errorf("Expected 2 fetch calls, but got %d", got)
	}
	if v := h.ctrl.View(); v.State != Idle || v.Err != "expired" {
		t.Errorf("Expected Idle with detail, but got %+v", v)
	}
}

func TestController_RecoveryFailureRequiresLogin(t *testing.T) {
	h := newHarness(t)
	h.api.Expire()
	h.api.Credentials = map[string]string{}

	var reason session.Reason
	h.sessions.OnLoginRequired(func(r session.Reason) { reason = r })

	err := h.ctrl.SubmitPost(context.Background(), testPost)
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("Expected ErrLoginRequired, but got %v", err)
	}
	if reason != session.ReasonStaleCredential {
		t.Errorf("listener reason = %q, want %q", reason, session.ReasonStaleCredential)
	}
	if got := h.api.Count("fetchComments"); got != 1 {
		t.Errorf("Expected 1 fetch call, but got %d", got)
	}
	if v := h.ctrl.View(); v.State != Idle || v.Busy {
		t.Errorf("Expected Idle and not busy, but got %+v", v)
	}
	if h.store.Len() != 0 {
		t.Errorf("Expected stale credential to be cleared, but store has %d keys", h.store.Len())
	}
}

func TestController_TransientFetchFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	detail := "Failed to fetch comments. Check your network connection and try again."
	h.api.FetchCommentsErrs = []error{failure.NewTransient(502, detail, nil)}
	handle := h.sessions.Handle()

	err := h.ctrl.SubmitPost(ctx, testPost)
	if failure.KindOf(err) != failure.Transient {
		t.Fatalf("Expected Transient, but got %v", err)
	}
	if v := h.ctrl.View(); v.State != Idle || v.Err != detail || v.Busy {
		t.Errorf("Expected Idle with %q, but got %+v", detail, v)
	}
	if got := h.api.Count("authenticate"); got != 1 {
		t.Errorf("Expected no recovery login, but got %d authenticate calls", got)
	}
	if got := h.api.Count("fetchComments"); got != 1 {
		t.Errorf("Expected 1 fetch call, but got %d", got)
	}
	if h.sessions.Handle() != handle {
		t.Error("Expected current handle to be kept")
	}
	if v, _, _ := h.store.Get(ctx, persist.KeySessionHandle); v != handle {
		t.Errorf("Expected persisted handle %q, but got %q", handle, v)
	}
	if v, _, _ := h.store.Get(ctx, persist.KeyCredential); v != "good-cookie" {
		t.Errorf("Expected persisted credential, but got %q", v)
	}
}

func TestController_ClearErrorAfterLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.Expire()
	h.api.AuthenticateErrs = []error{failure.NewUnauthorized(401, "expired")}

	if err := h.ctrl.SubmitPost(ctx, testPost); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("Expected ErrLoginRequired, but got %v", err)
	}
	if h.ctrl.View().Err == "" {
		t.Fatal("Expected recovery message on the view")
	}

	if _, err := h.sessions.Login(ctx, "good-cookie"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	h.ctrl.ClearError()

	if v := h.ctrl.View(); v.State != Idle || v.Err != "" {
		t.Errorf("Expected clean Idle view, but got %+v", v)
	}
	if err := h.ctrl.SubmitPost(ctx, testPost); err != nil {
		t.Errorf("Expected submission after login to succeed, but got %v", err)
	}
}

func TestController_SelectionFailureKeepsSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	detail := "Only 1 user(s) meet the minimum of 3 comment(s), but 2 winner(s) requested. Try lowering the minimum-comment threshold."
	h.api.SelectWinnersErrs = []error{failure.NewTransient(422, detail, nil)}

	if err := h.ctrl.SubmitPost(ctx, testPost); err != nil {
		t.Fatalf("SubmitPost() error = %v", err)
	}
	settings := models.GiveawaySettings{WinnerCount: 2, MinComments: 3}
	if err := h.ctrl.UpdateSettings(settings); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	if err := h.ctrl.Run(ctx, nil); err == nil {
		t.Fatal("Expected selection error")
	}

	v := h.ctrl.View()
	if v.State != Settings || v.Busy {
		t.Fatalf("Expected Settings and not busy, but got %+v", v)
	}
	if v.Err != detail {
		t.Errorf("Err = %q, want verbatim detail", v.Err)
	}
	if v.Settings != settings || len(v.Participants) != 3 {
		t.Errorf("Expected settings and participants retained, but got %+v", v)
	}

	// The user can retry straight away.
	if err := h.ctrl.Run(ctx, nil); err != nil {
		t.Fatalf("retry Run() error = %v", err)
	}
	if v := h.ctrl.View(); v.State != Results || v.Err != "" {
		t.Errorf("Expected Results with cleared error, but got %+v", v)
	}
}

type blockingAPI struct {
	*apiclienttest.Fake
	started chan struct{}
	release chan struct{}
}

func (b *blockingAPI) FetchComments(ctx context.Context, postRef, handle string) (models.CommentSet, error) {
	close(b.started)
	<-b.release
	return b.Fake.FetchComments(ctx, postRef, handle)
}

func TestController_RejectsConcurrentSubmission(t *testing.T) {
	h := newHarness(t)
	api := &blockingAPI{Fake: h.api, started: make(chan struct{}), release: make(chan struct{})}
	seq := reveal.New(reveal.NewVirtualClock(time.Unix(0, 0)), nil, reveal.Config{})
	ctrl := NewController(api, h.sessions, seq)

	done := make(chan error, 1)
	go func() { done <- ctrl.SubmitPost(context.Background(), testPost) }()
	<-api.started

	if v := ctrl.View(); !v.Busy || v.State != AwaitingComments {
		t.Errorf("Expected busy AwaitingComments, but got %+v", v)
	}
	if err := ctrl.SubmitPost(context.Background(), testPost); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, but got %v", err)
	}

	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("SubmitPost() error = %v", err)
	}
	if v := ctrl.View(); v.Busy || v.State != Settings {
		t.Errorf("Expected Settings and not busy, but got %+v", v)
	}
}

func TestController_CancelDuringRevealJumpsToResults(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.SubmitPost(context.Background(), testPost); err != nil {
		t.Fatalf("SubmitPost() error = %v", err)
	}
	_ = h.ctrl.UpdateSettings(models.GiveawaySettings{WinnerCount: 3, MinComments: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reveals int
	obs := reveal.Funcs{Reveal: func(reveal.Reveal) {
		reveals++
		cancel()
	}}

	if err := h.ctrl.Run(ctx, obs); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reveals != 1 {
		t.Errorf("Expected reveal to stop after cancel, but got %d reveals", reveals)
	}
	v := h.ctrl.View()
	if v.State != Results || len(v.Winners) != 3 {
		t.Errorf("Expected Results with all winners, but got %+v", v)
	}
}

func TestController_InvalidTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.ctrl.Run(ctx, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Run() from Idle = %v, want ErrInvalidTransition", err)
	}
	if err := h.ctrl.RunAgain(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("RunAgain() from Idle = %v, want ErrInvalidTransition", err)
	}
	if err := h.ctrl.UpdateSettings(models.DefaultSettings()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("UpdateSettings() from Idle = %v, want ErrInvalidTransition", err)
	}

	_ = h.ctrl.SubmitPost(ctx, testPost)
	if err := h.ctrl.UpdateSettings(models.GiveawaySettings{WinnerCount: 6, MinComments: 1}); !failure.IsValidation(err) {
		t.Errorf("UpdateSettings(6,1) = %v, want Validation", err)
	}
	if err := h.ctrl.SubmitPost(ctx, testPost); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("SubmitPost() from Settings = %v, want ErrInvalidTransition", err)
	}
}
