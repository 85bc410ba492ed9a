// Package game implements the authoritative room state machine. Every
// command against a room runs under that room's own mutex, so concurrent
// actions from both players' sockets are applied one at a time, in arrival
// order, with no lost updates. Rooms are independent of each other; there is
// no global lock.
package game

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/errors"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/repository"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/shuffle"
)

// MaxPlayers is the number of drafting participants per room
const MaxPlayers = 2

// PollEntry is one player's (name, composition) pair snapshotted at finalize
type PollEntry struct {
	Name string          `json:"name"`
	Team TeamComposition `json:"team"`
}

// PollCreator is implemented by the voting ledger. Create must copy the
// entries by value; later room mutation must not affect a published poll.
// Discard removes a poll that never made it onto a room, so a failed
// finalize cannot leave an orphan behind.
type PollCreator interface {
	Create(ctx context.Context, roomID string, player1, player2 PollEntry) (string, error)
	Discard(ctx context.Context, pollID string) error
}

// RoomInfo is the player roster broadcast to subscribers
type RoomInfo struct {
	RoomID  string   `json:"roomId"`
	Players []Player `json:"players"`
}

// roomState is the JSON document persisted per room
type roomState struct {
	Players []Player `json:"players"`
	Session Session  `json:"session"`
}

// Room owns one session and serializes all mutation of it. Commands either
// complete fully (mutate, persist, return the new snapshot) or leave the
// state untouched and report a typed error.
type Room struct {
	mu       sync.Mutex
	id       string
	password string
	players  []Player
	session  Session

	log      logger.Logger
	repo     repository.RoomRepository
	shuffler *shuffle.Shuffler
	roster   []string
}

// NewRoom creates a room in the waiting phase with the creator in slot 0.
// The creating registry has already persisted nothing; the first SaveRoom
// happens here so a crash cannot leak an unpersisted room id.
func NewRoom(ctx context.Context, log logger.Logger, repo repository.RoomRepository, shuffler *shuffle.Shuffler, roster []string, id, password string, creator Player) (*Room, error) {
	r := &Room{
		id:       id,
		password: password,
		players:  []Player{creator},
		session:  NewSession(),
		log:      log,
		repo:     repo,
		shuffler: shuffler,
		roster:   roster,
	}
	if err := r.persistLocked(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Restore rebuilds a room from its persisted state document.
func Restore(log logger.Logger, repo repository.RoomRepository, shuffler *shuffle.Shuffler, roster []string, rec repository.RoomRecord) (*Room, error) {
	var st roomState
	if err := json.Unmarshal(rec.State, &st); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "corrupt room state")
	}
	return &Room{
		id:       rec.RoomID,
		password: rec.Password,
		players:  st.Players,
		session:  st.Session,
		log:      log,
		repo:     repo,
		shuffler: shuffler,
		roster:   roster,
	}, nil
}

// ID returns the room code
func (r *Room) ID() string { return r.id }

// CheckPassword compares the supplied password verbatim. Room passwords are
// casual pairing codes, not an authentication boundary, so no hashing.
func (r *Room) CheckPassword(password string) bool {
	return r.password == password
}

// Join assigns the player to slot 1. Fails with RoomFull when both slots are
// taken.
func (r *Room) Join(ctx context.Context, p Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= MaxPlayers {
		return errors.RoomFull("room is full")
	}

	prev := r.snapshotLocked()
	r.players = append(r.players, p)
	if err := r.persistLocked(ctx); err != nil {
		r.restoreLocked(prev)
		return err
	}
	return nil
}

// Attach marks the player connected. If both players are connected and the
// session is still waiting, the draft starts atomically: a shuffled pool of
// PoolSize characters is drawn and the turn counter reset. Connectivity is
// monotonic; nothing ever flips it back to false.
func (r *Room) Attach(ctx context.Context, playerID string) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slotLocked(playerID)
	if !ok {
		return Session{}, false, errors.NotFound("player not in room")
	}

	prev := r.snapshotLocked()
	r.players[slot].Connected = true

	started := false
	if r.session.Phase == PhaseWaiting && len(r.players) == MaxPlayers && r.players[0].Connected && r.players[1].Connected {
		drawn := r.shuffler.Draw(r.roster, PoolSize)
		pool := make([]*string, len(drawn))
		for i := range drawn {
			c := drawn[i]
			pool[i] = &c
		}
		r.session.Phase = PhaseDrafting
		r.session.Pool = pool
		r.session.CurrentTurn = 0
		started = true
	}

	if err := r.persistLocked(ctx); err != nil {
		r.restoreLocked(prev)
		return Session{}, false, err
	}

	if started {
		r.log.Info("draft started", "room", r.id)
	}
	return r.session.clone(), started, nil
}

// Pick claims the pool entry at index for the acting player. Valid only in
// the drafting phase, on the acting player's turn (slot 0 acts on even
// turns), against an index that has not already been cleared. The entry is
// nilled in place so later indices stay stable.
func (r *Room) Pick(ctx context.Context, playerID string, index int) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slotLocked(playerID)
	if !ok {
		return Session{}, errors.NotFound("player not in room")
	}
	if r.session.Phase != PhaseDrafting {
		r.log.Debug("pick outside drafting phase", "room", r.id, "player", playerID, "phase", r.session.Phase)
		return Session{}, errors.IllegalMove("picking is only allowed while drafting")
	}
	if slot != r.session.CurrentTurn%MaxPlayers {
		r.log.Debug("pick out of turn", "room", r.id, "player", playerID, "turn", r.session.CurrentTurn)
		return Session{}, errors.IllegalMove("not your turn")
	}
	if index < 0 || index >= len(r.session.Pool) {
		return Session{}, errors.IllegalMovef("character index %d out of range", index)
	}
	if r.session.Pool[index] == nil {
		r.log.Debug("pick of cleared slot", "room", r.id, "player", playerID, "index", index)
		return Session{}, errors.IllegalMove("character already picked")
	}

	prev := r.snapshotLocked()
	name := *r.session.Pool[index]
	set := r.session.Selected.draftSet(slot)
	*set = append(*set, name)
	r.session.Pool[index] = nil
	r.session.CurrentTurn++
	if r.session.CurrentTurn >= PoolSize {
		r.session.Phase = PhaseTeamBuilding
	}

	if err := r.persistLocked(ctx); err != nil {
		r.restoreLocked(prev)
		return Session{}, err
	}
	return r.session.clone(), nil
}

// UpdateTeam replaces the caller's composition wholesale (last write wins).
// The core does not check that assigned names came from the caller's own
// draft set; that is a trust boundary the client is expected to respect.
func (r *Room) UpdateTeam(ctx context.Context, playerID string, team TeamComposition) (Session, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slotLocked(playerID)
	if !ok {
		return Session{}, "", errors.NotFound("player not in room")
	}
	if r.session.Phase != PhaseTeamBuilding {
		r.log.Debug("team update outside team building", "room", r.id, "player", playerID, "phase", r.session.Phase)
		return Session{}, "", errors.IllegalMove("team can only be changed while team building")
	}

	prev := r.snapshotLocked()
	*r.session.Teams.team(slot) = team
	if err := r.persistLocked(ctx); err != nil {
		r.restoreLocked(prev)
		return Session{}, "", err
	}
	return r.session.clone(), slotKey(slot), nil
}

// Finalize snapshots both (name, composition) pairs into a new poll and
// moves the session to the voting phase. Completeness of the compositions is
// a client-side gate, not re-checked here.
func (r *Room) Finalize(ctx context.Context, polls PollCreator) (Session, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.Phase != PhaseTeamBuilding {
		r.log.Debug("finalize outside team building", "room", r.id, "phase", r.session.Phase)
		return Session{}, "", errors.IllegalMove("teams can only be finalized while team building")
	}
	if len(r.players) < MaxPlayers {
		return Session{}, "", errors.IllegalMove("both players are required to finalize")
	}

	pollID, err := polls.Create(ctx, r.id,
		PollEntry{Name: r.players[0].Name, Team: r.session.Teams.Player1},
		PollEntry{Name: r.players[1].Name, Team: r.session.Teams.Player2},
	)
	if err != nil {
		return Session{}, "", err
	}

	prev := r.snapshotLocked()
	r.session.Phase = PhaseVoting
	r.session.PollID = pollID
	if err := r.persistLocked(ctx); err != nil {
		r.restoreLocked(prev)
		// The poll was already published; take it back so a retried
		// finalize does not leave an orphan behind.
		if derr := polls.Discard(ctx, pollID); derr != nil {
			r.log.Warn("orphaned poll left behind", "room", r.id, "poll", pollID, "error", derr)
		}
		return Session{}, "", err
	}

	r.log.Info("teams finalized", "room", r.id, "poll", pollID)
	return r.session.clone(), pollID, nil
}

// Snapshot returns a deep copy of the current session
func (r *Room) Snapshot() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.clone()
}

// Info returns the current player roster
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return RoomInfo{RoomID: r.id, Players: players}
}

// HasPlayer reports whether the player id belongs to this room
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slotLocked(playerID)
	return ok
}

func (r *Room) slotLocked(playerID string) (int, bool) {
	for i, p := range r.players {
		if p.ID == playerID {
			return i, true
		}
	}
	return 0, false
}

// snapshotLocked captures players and session for rollback
func (r *Room) snapshotLocked() roomState {
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return roomState{Players: players, Session: r.session.clone()}
}

func (r *Room) restoreLocked(st roomState) {
	r.players = st.Players
	r.session = st.Session
}

// persistLocked writes the room document through to storage. Callers roll
// back the in-memory mutation when this fails, so a snapshot is never
// broadcast unless it was durably recorded.
func (r *Room) persistLocked(ctx context.Context) error {
	state, err := json.Marshal(roomState{Players: r.players, Session: r.session})
	if err != nil {
		return errors.Internal(err)
	}
	if err := r.repo.SaveRoom(ctx, repository.RoomRecord{
		RoomID:   r.id,
		Password: r.password,
		State:    state,
	}); err != nil {
		return errors.Storage(err)
	}
	return nil
}
