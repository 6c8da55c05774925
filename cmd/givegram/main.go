package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/logger"

	"givegram/internal/apiclient"
	"givegram/internal/config"
	"givegram/internal/failure"
	"givegram/internal/giveaway"
	"givegram/internal/models"
	"givegram/internal/persist"
	"givegram/internal/reveal"
	"givegram/internal/screens"
	"givegram/internal/session"
)

func main() {
	// 1. Load configuration and send logs to a file so they don't mix with the screens
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logger.Init("givegram", cfg.Verbose, false, logFile).Close()

	// 2. Open the local store that keeps the credential across restarts
	var store persist.KeyValue = persist.NewMemoryStore()
	if !cfg.Ephemeral {
		db, err := persist.OpenSQLite(cfg.DBPath)
		if err != nil {
			logger.Fatalf("Failed to open store: %v", err)
		}
		defer db.Close()
		store = db
	}

	// 3. Wire the session manager, sequencer and run controller
	api := apiclient.New(cfg.APIURL, apiclient.WithTimeout(cfg.RequestTimeout))
	sessions := session.NewManager(api, store)
	seq := reveal.New(reveal.RealClock{}, nil, reveal.Config{Countdown: cfg.Countdown, Hold: cfg.RevealHold})
	app := &app{
		sessions: sessions,
		ctrl:     giveaway.NewController(api, sessions, seq),
		in:       bufio.NewScanner(os.Stdin),
		out:      os.Stdout,
	}
	sessions.OnLoginRequired(app.requireLogin)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil && !errors.Is(err, io.EOF) {
		logger.Errorf("Client stopped: %v", err)
		os.Exit(1)
	}
}

type app struct {
	sessions *session.Manager
	ctrl     *giveaway.Controller
	in       *bufio.Scanner
	out      io.Writer

	mu      sync.Mutex
	pending *session.Reason // set when recovery sends the user back to login
}

func (a *app) requireLogin(reason session.Reason) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &reason
}

func (a *app) takePendingLogin() (session.Reason, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return session.ReasonNone, false
	}
	reason := *a.pending
	a.pending = nil
	return reason, true
}

func (a *app) readLine() (string, error) {
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func (a *app) run(ctx context.Context) error {
	res := a.sessions.RestoreOnStartup(ctx)
	if !res.Restored() {
		if err := a.login(ctx, res.Reason); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := a.ctrl.View()
		fmt.Fprint(a.out, screens.Run(v, a.sessions.Username()))

		var err error
		switch v.State {
		case giveaway.Idle:
			err = a.idle(ctx)
		case giveaway.Settings:
			err = a.settings(ctx)
		case giveaway.Results:
			if _, err = a.readLine(); err == nil {
				err = a.ctrl.RunAgain()
			}
		}
		if err != nil {
			return err
		}
	}
}

func (a *app) login(ctx context.Context, reason session.Reason) error {
	errText := ""
	for {
		fmt.Fprint(a.out, screens.Login(reason, errText))
		credential, err := a.readLine()
		if err != nil {
			return err
		}
		if _, err := a.sessions.Login(ctx, credential); err != nil {
			reason, errText = session.ReasonNone, failure.Detail(err)
			continue
		}
		a.ctrl.ClearError()
		return nil
	}
}

func (a *app) idle(ctx context.Context) error {
	line, err := a.readLine()
	if err != nil {
		return err
	}

	switch line {
	case ":quit":
		return io.EOF
	case ":logout":
		a.sessions.Logout(ctx)
		return a.login(ctx, session.ReasonNone)
	}

	fmt.Fprintln(a.out, screens.Run(giveaway.View{State: giveaway.AwaitingComments, PostRef: line}, ""))
	// Failures are already on the view.
	_ = a.ctrl.SubmitPost(ctx, line)
	if reason, ok := a.takePendingLogin(); ok {
		return a.login(ctx, reason)
	}
	return nil
}

func (a *app) settings(ctx context.Context) error {
	line, err := a.readLine()
	if err != nil {
		return err
	}

	if line != "" {
		s, perr := parseSettings(line)
		if perr == nil {
			perr = a.ctrl.UpdateSettings(s)
		}
		if perr != nil {
			fmt.Fprintf(a.out, "! %s\n", failure.Detail(perr))
		}
		return nil
	}

	fmt.Fprintln(a.out, screens.Run(giveaway.View{State: giveaway.AwaitingSelection}, ""))

	// Ctrl-C while revealing skips the animation.
	revealCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	obs := reveal.Funcs{
		Tick:   func(t reveal.Tick) { fmt.Fprint(a.out, screens.Tick(t)) },
		Reveal: func(r reveal.Reveal) { fmt.Fprint(a.out, screens.Reveal(r)) },
	}
	_ = a.ctrl.Run(revealCtx, obs)
	return nil
}

func parseSettings(line string) (models.GiveawaySettings, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return models.GiveawaySettings{}, failure.NewValidation("Enter two numbers: winners and minimum comments.")
	}
	winners, err1 := strconv.Atoi(fields[0])
	minComments, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return models.GiveawaySettings{}, failure.NewValidation("Enter two numbers: winners and minimum comments.")
	}
	return models.GiveawaySettings{WinnerCount: winners, MinComments: minComments}, nil
}
