// Package registry maps room codes to live room state machines and handles
// creation, lookup, password checks and player-slot assignment.
package registry

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/errors"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/game"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/repository"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/shuffle"
)

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 6
)

// passwordPattern matches the accepted room password format: 1-8 digits.
// Passwords are casual pairing codes compared verbatim, not credentials.
var passwordPattern = regexp.MustCompile(`^[0-9]{1,8}$`)

// Registry owns the map of live rooms. It is constructed once at process
// start and injected wherever rooms are looked up; there is no package-level
// state.
type Registry struct {
	log      logger.Logger
	repo     repository.RoomRepository
	shuffler *shuffle.Shuffler
	roster   []string

	mu    sync.RWMutex
	rooms map[string]*game.Room
}

// New creates an empty registry
func New(log logger.Logger, repo repository.RoomRepository, shuffler *shuffle.Shuffler, roster []string) *Registry {
	return &Registry{
		log:      log,
		repo:     repo,
		shuffler: shuffler,
		roster:   roster,
		rooms:    make(map[string]*game.Room),
	}
}

// Load rehydrates rooms from storage
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.repo.ListRooms(ctx)
	if err != nil {
		return errors.Storage(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		room, err := game.Restore(r.log, r.repo, r.shuffler, r.roster, rec)
		if err != nil {
			r.log.Warn("skipping corrupt room record", "room", rec.RoomID, "error", err)
			continue
		}
		r.rooms[rec.RoomID] = room
	}
	r.log.Info("rooms loaded", "count", len(r.rooms))
	return nil
}

// CreateRoom generates a fresh room code, assigns the creator to slot 0 and
// initializes the session in the waiting phase.
func (r *Registry) CreateRoom(ctx context.Context, playerName, password string) (roomID, playerID string, err error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return "", "", errors.Validation("player name is required")
	}
	if password == "" {
		return "", "", errors.Validation("password is required")
	}
	if !passwordPattern.MatchString(password) {
		return "", "", errors.Validation("password must be 1-8 digits")
	}

	creator := game.Player{ID: uuid.NewString(), Name: playerName}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.freshCodeLocked()
	if err != nil {
		return "", "", errors.Internal(err)
	}

	room, err := game.NewRoom(ctx, r.log, r.repo, r.shuffler, r.roster, code, password, creator)
	if err != nil {
		return "", "", err
	}
	r.rooms[code] = room

	r.log.Info("room created", "room", code, "player", playerName)
	return code, creator.ID, nil
}

// JoinRoom assigns the player to slot 1 of an existing room
func (r *Registry) JoinRoom(ctx context.Context, roomID, playerName, password string) (string, string, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return "", "", errors.Validation("player name is required")
	}
	if password == "" {
		return "", "", errors.Validation("password is required")
	}

	room, err := r.GetRoom(roomID)
	if err != nil {
		return "", "", err
	}
	if !room.CheckPassword(password) {
		return "", "", errors.Unauthorized("invalid password")
	}

	player := game.Player{ID: uuid.NewString(), Name: playerName}
	if err := room.Join(ctx, player); err != nil {
		return "", "", err
	}

	r.log.Info("player joined", "room", room.ID(), "player", playerName)
	return room.ID(), player.ID, nil
}

// GetRoom looks up a room by its case-normalized code
func (r *Registry) GetRoom(roomID string) (*game.Room, error) {
	code := NormalizeRoomID(roomID)
	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("room not found")
	}
	return room, nil
}

// NormalizeRoomID upper-cases a room code so lookups are case-insensitive
func NormalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

// freshCodeLocked generates a room code that does not collide with any live
// room. Collisions are vanishingly rare at this scale; the loop is the
// correctness guarantee.
func (r *Registry) freshCodeLocked() (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, exists := r.rooms[code]; !exists {
			return code, nil
		}
		r.log.Debug("room code collision, regenerating", "room", code)
	}
}

// generateCode produces a 6-character uppercase alphanumeric code
func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
