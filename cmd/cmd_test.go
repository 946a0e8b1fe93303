package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/eslsoft/vocsync/internal/app"
	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/identity"
	"github.com/eslsoft/vocsync/internal/usecase/backup"
)

func Test_cliProgress_phases(t *testing.T) {
	var buf bytes.Buffer
	p := newCLIProgress(&buf)
	p.StartPhase(backup.PhaseUpload, 4)
	p.Increment(backup.PhaseUpload, 2)
	p.Increment(backup.PhaseUpload, 0)
	p.Increment(backup.PhaseUpload, 2)
	p.FinishPhase(backup.PhaseUpload)

	out := buf.String()
	for _, want := range []string{"start upload (4 entries)", "upload: 2/4", "upload: 4/4", "done upload: 4/4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func Test_progressStep(t *testing.T) {
	cases := map[int]int{0: 1000, 10: 1, 400: 20, 1_000_000: 1000}
	for total, want := range cases {
		if got := progressStep(total); got != want {
			t.Fatalf("progressStep(%d) = %d, want %d", total, got, want)
		}
	}
}

func Test_wordFromFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	wordFlags(flags)
	if err := flags.Parse([]string{"--headword", "apple", "--tag", "fruit, ,food", "--favorite", "--difficulty", "2"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	w := wordFromFlags(flags)
	if w.Headword != "apple" || !w.Favorite || w.Difficulty != 2 || w.Language != "en" {
		t.Fatalf("unexpected word: %+v", w)
	}
	if len(w.Tags) != 2 || w.Tags[0] != "fruit" || w.Tags[1] != "food" {
		t.Fatalf("unexpected tags: %v", w.Tags)
	}
	if w.Examples != nil {
		t.Fatalf("expected no examples, got %v", w.Examples)
	}
}

func Test_ownerFromFlagOrIdentity(t *testing.T) {
	c := &app.Container{Identity: identity.User{ID: "u-1", Email: "Ada@Example.com"}}
	owner, err := ownerFromFlagOrIdentity("", c)
	if err != nil || owner != "ada@example.com" {
		t.Fatalf("got %q, %v", owner, err)
	}
	owner, err = ownerFromFlagOrIdentity(" Bob@Example.com ", c)
	if err != nil || owner != "bob@example.com" {
		t.Fatalf("got %q, %v", owner, err)
	}

	signedOut := &app.Container{Identity: identity.User{}}
	if _, err := ownerFromFlagOrIdentity("", signedOut); !errors.Is(err, entity.ErrUserNotAuthenticated) {
		t.Fatalf("expected ErrUserNotAuthenticated, got %v", err)
	}
}

func Test_issueToken(t *testing.T) {
	cfg := config.IdentityConfig{SigningKey: "s3cret", UserID: "u-1", Email: "Ana@Example.com", DisplayName: "Ana"}
	token, err := issueToken(cfg, time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	user, err := identity.FromConfig(config.IdentityConfig{Token: token, SigningKey: "s3cret"})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if user.ID != "u-1" || user.Email != "ana@example.com" || user.DisplayName != "Ana" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := issueToken(config.IdentityConfig{UserID: "u-1"}, time.Hour); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without a signing key, got %v", err)
	}
	if _, err := issueToken(config.IdentityConfig{SigningKey: "s3cret"}, time.Hour); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without a user id, got %v", err)
	}
}

func Test_printSharedWords(t *testing.T) {
	var buf bytes.Buffer
	printSharedWords(&buf, []entity.SharedWord{{
		Word:         entity.Word{ID: "w1", Headword: "serendipity"},
		AddedByEmail: "ana@example.com",
		Likes:        map[string]bool{"ana@example.com": true, "bo@example.com": false, "cy@example.com": true},
	}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got:\n%s", buf.String())
	}
	fields := strings.Fields(lines[1])
	if len(fields) != 4 || fields[1] != "serendipity" || fields[3] != "2" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
