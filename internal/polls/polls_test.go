package polls_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	apperrors "github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/errors"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/game"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/polls"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/repository"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/testutil"
)

func newTestLedger(t *testing.T) *polls.Ledger {
	t.Helper()
	ledger, _ := newTestLedgerWithRepo(t)
	return ledger
}

// newTestLedgerWithRepo seeds a room row so poll inserts satisfy the
// room foreign key.
func newTestLedgerWithRepo(t *testing.T) (*polls.Ledger, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	err := repo.SaveRoom(context.Background(), repository.RoomRecord{
		RoomID:   "AB12CD",
		Password: "1234",
		State:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("seed room failed: %v", err)
	}
	return polls.NewLedger(logger.New(), repo), repo
}

func createTestPoll(t *testing.T, ledger *polls.Ledger) string {
	t.Helper()
	pollID, err := ledger.Create(context.Background(), "AB12CD",
		game.PollEntry{Name: "Alice", Team: game.TeamComposition{Captain: "Naruto Uzumaki"}},
		game.PollEntry{Name: "Bob", Team: game.TeamComposition{Captain: "Sasuke Uchiha"}},
	)
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	return pollID
}

func kindOf(t *testing.T, err error) apperrors.Kind {
	t.Helper()
	var appErr *apperrors.Error
	if !stderrors.As(err, &appErr) {
		t.Fatalf("expected application error, got %v", err)
	}
	return appErr.Kind
}

func TestParseChoice(t *testing.T) {
	cases := []struct {
		in   string
		want polls.Choice
		ok   bool
	}{
		{"player1", polls.ChoicePlayer1, true},
		{"player2", polls.ChoicePlayer2, true},
		{"player3", "", false},
		{"PLAYER1", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := polls.ParseChoice(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseChoice(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCreateAndGet(t *testing.T) {
	ledger := newTestLedger(t)
	pollID := createTestPoll(t, ledger)

	poll, err := ledger.Get(pollID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if poll.PollID != pollID || poll.RoomID != "AB12CD" {
		t.Fatalf("unexpected poll identity: %+v", poll)
	}
	if poll.Teams.Player1.Name != "Alice" || poll.Teams.Player2.Name != "Bob" {
		t.Fatalf("unexpected team names: %+v", poll.Teams)
	}
	if poll.Votes.Total() != 0 {
		t.Fatalf("new poll should have no votes, got %d", poll.Votes.Total())
	}
}

func TestGet_UnknownPoll(t *testing.T) {
	ledger := newTestLedger(t)
	if _, err := ledger.Get("no-such-poll"); kindOf(t, err) != apperrors.ErrNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestVote_CountsOncePerFingerprint(t *testing.T) {
	ledger := newTestLedger(t)
	pollID := createTestPoll(t, ledger)

	poll, err := ledger.Vote(context.Background(), pollID, "10.0.0.1", polls.ChoicePlayer1)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if poll.Votes.Player1 != 1 || poll.Votes.Player2 != 0 {
		t.Fatalf("unexpected tally: %+v", poll.Votes)
	}

	// Same fingerprint again, even for the other team, is rejected
	_, err = ledger.Vote(context.Background(), pollID, "10.0.0.1", polls.ChoicePlayer2)
	if kindOf(t, err) != apperrors.ErrDuplicateVote {
		t.Fatalf("expected DuplicateVote, got %v", err)
	}

	poll, err = ledger.Get(pollID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if poll.Votes.Total() != 1 {
		t.Fatalf("duplicate vote changed the tally: %+v", poll.Votes)
	}
}

func TestVote_EmptyFingerprint(t *testing.T) {
	ledger := newTestLedger(t)
	pollID := createTestPoll(t, ledger)

	_, err := ledger.Vote(context.Background(), pollID, "", polls.ChoicePlayer1)
	if kindOf(t, err) != apperrors.ErrValidation {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestVote_UnknownPoll(t *testing.T) {
	ledger := newTestLedger(t)
	_, err := ledger.Vote(context.Background(), "no-such-poll", "10.0.0.1", polls.ChoicePlayer1)
	if kindOf(t, err) != apperrors.ErrNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestVote_ConcurrentSameFingerprint(t *testing.T) {
	ledger := newTestLedger(t)
	pollID := createTestPoll(t, ledger)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Vote(context.Background(), pollID, "10.0.0.1", polls.ChoicePlayer1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	counted := 0
	for err := range errs {
		if err == nil {
			counted++
		} else if kindOf(t, err) != apperrors.ErrDuplicateVote {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if counted != 1 {
		t.Fatalf("want exactly 1 counted vote, got %d", counted)
	}

	poll, err := ledger.Get(pollID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if poll.Votes.Player1 != 1 {
		t.Fatalf("want tally 1, got %d", poll.Votes.Player1)
	}
}

func TestVote_ConcurrentDistinctFingerprints(t *testing.T) {
	ledger := newTestLedger(t)
	pollID := createTestPoll(t, ledger)

	const voters = 20
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			choice := polls.ChoicePlayer1
			if i%2 == 1 {
				choice = polls.ChoicePlayer2
			}
			if _, err := ledger.Vote(context.Background(), pollID, fmt.Sprintf("10.0.0.%d", i), choice); err != nil {
				t.Errorf("vote %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	poll, err := ledger.Get(pollID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if poll.Votes.Player1 != voters/2 || poll.Votes.Player2 != voters/2 {
		t.Fatalf("lost votes: %+v", poll.Votes)
	}
}

func TestDiscard_RemovesPollEverywhere(t *testing.T) {
	ledger, repo := newTestLedgerWithRepo(t)
	pollID := createTestPoll(t, ledger)

	if err := ledger.Discard(context.Background(), pollID); err != nil {
		t.Fatalf("discard failed: %v", err)
	}

	if _, err := ledger.Get(pollID); kindOf(t, err) != apperrors.ErrNotFound {
		t.Fatalf("discarded poll still readable: %v", err)
	}
	if _, err := repo.GetPoll(context.Background(), pollID); err != repository.ErrNotFound {
		t.Fatalf("discarded poll still persisted: %v", err)
	}

	_, err := ledger.Vote(context.Background(), pollID, "10.0.0.1", polls.ChoicePlayer1)
	if kindOf(t, err) != apperrors.ErrNotFound {
		t.Fatalf("expected NotFound voting on discarded poll, got %v", err)
	}
}

func TestPercentages(t *testing.T) {
	cases := []struct {
		name  string
		tally polls.Tally
		want1 float64
		want2 float64
	}{
		{"no votes", polls.Tally{}, 0, 0},
		{"three to one", polls.Tally{Player1: 3, Player2: 1}, 75, 25},
		{"shutout", polls.Tally{Player1: 0, Player2: 4}, 0, 100},
		{"even", polls.Tally{Player1: 5, Player2: 5}, 50, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p1, p2 := tc.tally.Percentages()
			if p1 != tc.want1 || p2 != tc.want2 {
				t.Fatalf("Percentages() = %.1f, %.1f; want %.1f, %.1f", p1, p2, tc.want1, tc.want2)
			}
		})
	}
}

func TestLoad_RehydratesTalliesAndDedup(t *testing.T) {
	ledger, repo := newTestLedgerWithRepo(t)

	pollID, err := ledger.Create(context.Background(), "AB12CD",
		game.PollEntry{Name: "Alice"}, game.PollEntry{Name: "Bob"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := ledger.Vote(context.Background(), pollID, "10.0.0.1", polls.ChoicePlayer1); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := ledger.Vote(context.Background(), pollID, "10.0.0.2", polls.ChoicePlayer2); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	// A fresh ledger over the same database sees the tally and still
	// rejects the original voters.
	reborn := polls.NewLedger(logger.New(), repo)
	if err := reborn.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	poll, err := reborn.Get(pollID)
	if err != nil {
		t.Fatalf("get after load failed: %v", err)
	}
	if poll.Votes.Player1 != 1 || poll.Votes.Player2 != 1 {
		t.Fatalf("tally not rehydrated: %+v", poll.Votes)
	}
	if poll.Teams.Player1.Name != "Alice" {
		t.Fatalf("teams not rehydrated: %+v", poll.Teams)
	}

	_, err = reborn.Vote(context.Background(), pollID, "10.0.0.1", polls.ChoicePlayer1)
	if kindOf(t, err) != apperrors.ErrDuplicateVote {
		t.Fatalf("expected DuplicateVote after rehydration, got %v", err)
	}

	if _, err := reborn.Vote(context.Background(), pollID, "10.0.0.3", polls.ChoicePlayer1); err != nil {
		t.Fatalf("new voter after rehydration failed: %v", err)
	}
}
