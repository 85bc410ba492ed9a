// Package polls is the public voting ledger. Each poll is an immutable
// snapshot of two finalized teams plus an append-only tally; votes are
// deduplicated by an opaque caller-supplied fingerprint.
package polls

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/errors"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/game"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/repository"
)

// Choice identifies which team a vote is for
type Choice string

const (
	ChoicePlayer1 Choice = "player1"
	ChoicePlayer2 Choice = "player2"
)

// ParseChoice validates a wire-format vote choice
func ParseChoice(s string) (Choice, bool) {
	switch Choice(s) {
	case ChoicePlayer1, ChoicePlayer2:
		return Choice(s), true
	default:
		return "", false
	}
}

// Teams holds both finalized (name, composition) snapshots
type Teams struct {
	Player1 game.PollEntry `json:"player1"`
	Player2 game.PollEntry `json:"player2"`
}

// Tally is the running vote count per team
type Tally struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Total returns the combined vote count
func (t Tally) Total() int {
	return t.Player1 + t.Player2
}

// Percentages returns each team's share of the total as 0-100 values.
// Both are 0 when no votes have been cast.
func (t Tally) Percentages() (player1, player2 float64) {
	total := t.Total()
	if total == 0 {
		return 0, 0
	}
	return float64(t.Player1) / float64(total) * 100, float64(t.Player2) / float64(total) * 100
}

// Poll is the public view of a voting record. Voter fingerprints are kept
// internal to the ledger and never serialized.
type Poll struct {
	PollID string `json:"pollId"`
	RoomID string `json:"roomId"`
	Teams  Teams  `json:"teams"`
	Votes  Tally  `json:"votes"`
}

// pollState pairs a poll with its dedup set and the mutex serializing the
// check-and-increment sequence for that one poll.
type pollState struct {
	mu     sync.Mutex
	poll   Poll
	voters map[string]struct{}
}

// Ledger owns all polls. The outer lock only guards the map; each poll's
// vote path is serialized by its own mutex so unrelated polls never contend.
type Ledger struct {
	log  logger.Logger
	repo repository.PollRepository

	mu    sync.RWMutex
	polls map[string]*pollState
}

// NewLedger creates an empty ledger
func NewLedger(log logger.Logger, repo repository.PollRepository) *Ledger {
	return &Ledger{
		log:   log,
		repo:  repo,
		polls: make(map[string]*pollState),
	}
}

// Load rehydrates the ledger from storage
func (l *Ledger) Load(ctx context.Context) error {
	records, err := l.repo.ListPolls(ctx)
	if err != nil {
		return errors.Storage(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		var teams Teams
		if err := json.Unmarshal(rec.Teams, &teams); err != nil {
			l.log.Warn("skipping corrupt poll record", "poll", rec.PollID, "error", err)
			continue
		}
		voters := make(map[string]struct{}, len(rec.Voters))
		for _, fp := range rec.Voters {
			voters[fp] = struct{}{}
		}
		l.polls[rec.PollID] = &pollState{
			poll: Poll{
				PollID: rec.PollID,
				RoomID: rec.RoomID,
				Teams:  teams,
				Votes:  Tally{Player1: rec.Votes1, Player2: rec.Votes2},
			},
			voters: voters,
		}
	}
	l.log.Info("polls loaded", "count", len(l.polls))
	return nil
}

// Create allocates a new poll from the finalized team snapshots. The entries
// arrive by value, so later room mutation cannot affect the published poll.
// Implements game.PollCreator.
func (l *Ledger) Create(ctx context.Context, roomID string, player1, player2 game.PollEntry) (string, error) {
	pollID := uuid.NewString()
	teams := Teams{Player1: player1, Player2: player2}

	raw, err := json.Marshal(teams)
	if err != nil {
		return "", errors.Internal(err)
	}
	if err := l.repo.CreatePoll(ctx, repository.PollRecord{
		PollID: pollID,
		RoomID: roomID,
		Teams:  raw,
	}); err != nil {
		return "", errors.Storage(err)
	}

	l.mu.Lock()
	l.polls[pollID] = &pollState{
		poll: Poll{
			PollID: pollID,
			RoomID: roomID,
			Teams:  teams,
		},
		voters: make(map[string]struct{}),
	}
	l.mu.Unlock()

	l.log.Info("poll created", "poll", pollID, "room", roomID)
	return pollID, nil
}

// Discard removes a poll that was created but never attached to a room.
// Implements game.PollCreator.
func (l *Ledger) Discard(ctx context.Context, pollID string) error {
	l.mu.Lock()
	delete(l.polls, pollID)
	l.mu.Unlock()

	if err := l.repo.DeletePoll(ctx, pollID); err != nil {
		return errors.Storage(err)
	}
	l.log.Info("poll discarded", "poll", pollID)
	return nil
}

// Get returns a copy of the poll
func (l *Ledger) Get(pollID string) (Poll, error) {
	st, err := l.state(pollID)
	if err != nil {
		return Poll{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.poll, nil
}

// Vote counts one vote for the chosen team. The fingerprint membership
// check, the durable write and the in-memory increment happen under the
// poll's mutex, so two concurrent votes with the same fingerprint can never
// both be counted. The vote is persisted before it is applied in memory.
func (l *Ledger) Vote(ctx context.Context, pollID, fingerprint string, choice Choice) (Poll, error) {
	if fingerprint == "" {
		return Poll{}, errors.Validation("voter fingerprint is required")
	}

	st, err := l.state(pollID)
	if err != nil {
		return Poll{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, voted := st.voters[fingerprint]; voted {
		l.log.Debug("duplicate vote ignored", "poll", pollID)
		return Poll{}, errors.DuplicateVote("already voted")
	}

	if err := l.repo.AddVote(ctx, pollID, fingerprint, string(choice)); err != nil {
		if err == repository.ErrDuplicateVoter {
			return Poll{}, errors.DuplicateVote("already voted")
		}
		return Poll{}, errors.Storage(err)
	}

	st.voters[fingerprint] = struct{}{}
	switch choice {
	case ChoicePlayer1:
		st.poll.Votes.Player1++
	case ChoicePlayer2:
		st.poll.Votes.Player2++
	}

	return st.poll, nil
}

func (l *Ledger) state(pollID string) (*pollState, error) {
	l.mu.RLock()
	st, ok := l.polls[pollID]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("poll not found")
	}
	return st, nil
}
