// Package screens turns run state into terminal text. Every function is a
// pure renderer with no I/O.
package screens

import (
	"fmt"
	"strings"

	"givegram/internal/giveaway"
	"givegram/internal/models"
	"givegram/internal/reveal"
	"givegram/internal/session"
)

const barWidth = 20

// Login renders the login screen.
func Login(reason session.Reason, errText string) string {
	var b strings.Builder
	b.WriteString("== Givegram: log in ==\n")
	if msg := reason.Message(); msg != "" {
		b.WriteString(msg + "\n")
	}
	if errText != "" {
		b.WriteString("! " + errText + "\n")
	}
	b.WriteString("Paste your instagram.com sessionid cookie: ")
	return b.String()
}

// Run renders the screen for the current run state.
func Run(v giveaway.View, username string) string {
	var b strings.Builder

	switch v.State {
	case giveaway.Idle:
		fmt.Fprintf(&b, "== Givegram (@%s) ==\n", username)
		writeErr(&b, v.Err)
		b.WriteString("Post URL (or :logout): ")

	case giveaway.AwaitingComments:
		fmt.Fprintf(&b, "Fetching comments for %s ...\n", v.PostRef)

	case giveaway.Settings:
		fmt.Fprintf(&b, "== Settings ==\n%d commenter(s), %d comment(s)\n", len(v.Participants), v.TotalComments)
		fmt.Fprintf(&b, "Winners: %d   Minimum comments: %d\n", v.Settings.WinnerCount, v.Settings.MinComments)
		writeErr(&b, v.Err)
		fmt.Fprintf(&b, "Enter \"<winners> <min comments>\" (%d-%d), or press enter to run: ", models.MinWinners, models.MaxWinners)

	case giveaway.AwaitingSelection:
		b.WriteString("Picking winners ...\n")

	case giveaway.Revealing:
		fmt.Fprintf(&b, "Revealing winner %d of %d\n", v.RevealIndex+1, len(v.Winners))

	case giveaway.Results:
		b.WriteString("== Results ==\n")
		for i, w := range v.Winners {
			fmt.Fprintf(&b, "%d. @%s\n", i+1, w)
		}
		b.WriteString("Press enter to run again: ")
	}
	return b.String()
}

// Tick renders one countdown frame.
func Tick(t reveal.Tick) string {
	filled := int(t.Progress * barWidth)
	return fmt.Sprintf("\rWinner #%d in %d  [%s%s]", t.Index+1, t.Remaining,
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled))
}

// Reveal renders a revealed winner.
func Reveal(r reveal.Reveal) string {
	return fmt.Sprintf("\n*** @%s ***  %s  (%d/%d)\n", r.Winner, r.Message, r.Index+1, r.Total)
}

func writeErr(b *strings.Builder, errText string) {
	if errText != "" {
		b.WriteString("! " + errText + "\n")
	}
}
