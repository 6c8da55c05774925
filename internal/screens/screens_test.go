package screens

import (
	"strings"
	"testing"

	"givegram/internal/giveaway"
	"givegram/internal/models"
	"givegram/internal/reveal"
	"givegram/internal/session"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		view giveaway.View
		want []string
	}{
		{"idle with error", giveaway.View{State: giveaway.Idle, Err: "bad url"}, []string{"@host", "! bad url", "Post URL"}},
		{"settings", giveaway.View{
			State:         giveaway.Settings,
			Participants:  []models.Participant{{Username: "a", CommentCount: 1}},
			TotalComments: 4,
			Settings:      models.GiveawaySettings{WinnerCount: 2, MinComments: 3},
		}, []string{"1 commenter(s), 4 comment(s)", "Winners: 2", "Minimum comments: 3"}},
		{"results", giveaway.View{State: giveaway.Results, Winners: models.WinnerList{"alice", "bob"}}, []string{"1. @alice", "2. @bob"}},
		{"revealing", giveaway.View{State: giveaway.Revealing, RevealIndex: 1, Winners: models.WinnerList{"a", "b", "c"}}, []string{"winner 2 of 3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Run(tt.view, "host")
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Run() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	got := Login(session.ReasonStaleCredential, "")
	if !strings.Contains(got, "expired") {
		t.Errorf("Login() = %q, want stale-credential message", got)
	}
	if got := Login(session.ReasonNoCredential, ""); strings.Contains(got, "!") {
		t.Errorf("Login() = %q, want no error line", got)
	}
}

func TestTickAndReveal(t *testing.T) {
	if got := Tick(reveal.Tick{Index: 0, Progress: 0.5, Remaining: 2}); !strings.Contains(got, "##########..........") {
		t.Errorf("Tick() = %q, want half-filled bar", got)
	}
	got := Reveal(reveal.Reveal{Index: 2, Total: 3, Winner: "cara", Message: "Yay"})
	if !strings.Contains(got, "@cara") || !strings.Contains(got, "(3/3)") {
		t.Errorf("Reveal() = %q", got)
	}
}
