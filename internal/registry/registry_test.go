package registry_test

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"testing"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/characters"
	apperrors "github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/errors"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/registry"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/shuffle"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/testutil"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(logger.New(), testutil.NewTestRepository(t), shuffle.NewSeeded(7), characters.Catalog())
}

func kindOf(t *testing.T, err error) apperrors.Kind {
	t.Helper()
	var appErr *apperrors.Error
	if !stderrors.As(err, &appErr) {
		t.Fatalf("expected application error, got %v", err)
	}
	return appErr.Kind
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateRoom(t *testing.T) {
	reg := newTestRegistry(t)

	roomID, playerID, err := reg.CreateRoom(context.Background(), "Alice", "1234")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !codePattern.MatchString(roomID) {
		t.Fatalf("room code %q not 6 uppercase alphanumerics", roomID)
	}
	if playerID == "" {
		t.Fatalf("empty player id")
	}

	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !room.HasPlayer(playerID) {
		t.Fatalf("creator not in room")
	}
}

func TestCreateRoom_Validation(t *testing.T) {
	cases := []struct {
		name     string
		player   string
		password string
	}{
		{"empty name", "", "1234"},
		{"whitespace name", "   ", "1234"},
		{"empty password", "Alice", ""},
		{"password too long", "Alice", "123456789"},
		{"password not digits", "Alice", "12ab"},
	}
	reg := newTestRegistry(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := reg.CreateRoom(context.Background(), tc.player, tc.password)
			if kindOf(t, err) != apperrors.ErrValidation {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateRoom_CodesAreUnique(t *testing.T) {
	reg := newTestRegistry(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		roomID, _, err := reg.CreateRoom(context.Background(), "Alice", "1234")
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if seen[roomID] {
			t.Fatalf("duplicate room code %q", roomID)
		}
		seen[roomID] = true
	}
}

func TestJoinRoom(t *testing.T) {
	reg := newTestRegistry(t)
	roomID, _, err := reg.CreateRoom(context.Background(), "Alice", "1234")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	joinedID, playerID, err := reg.JoinRoom(context.Background(), roomID, "Bob", "1234")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joinedID != roomID {
		t.Fatalf("joined %q, created %q", joinedID, roomID)
	}

	room, _ := reg.GetRoom(roomID)
	if !room.HasPlayer(playerID) {
		t.Fatalf("joiner not in room")
	}
}

func TestJoinRoom_CaseInsensitiveCode(t *testing.T) {
	reg := newTestRegistry(t)
	roomID, _, err := reg.CreateRoom(context.Background(), "Alice", "1234")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	joinedID, _, err := reg.JoinRoom(context.Background(), "  "+strings.ToLower(roomID)+" ", "Bob", "1234")
	if err != nil {
		t.Fatalf("lower-case join failed: %v", err)
	}
	if joinedID != roomID {
		t.Fatalf("joined %q, want %q", joinedID, roomID)
	}
}

func TestJoinRoom_Failures(t *testing.T) {
	reg := newTestRegistry(t)
	roomID, _, err := reg.CreateRoom(context.Background(), "Alice", "1234")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := reg.JoinRoom(context.Background(), roomID, "Bob", "1234"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	cases := []struct {
		name     string
		roomID   string
		player   string
		password string
		want     apperrors.Kind
	}{
		{"unknown room", "ZZZZZZ", "Carol", "1234", apperrors.ErrNotFound},
		{"wrong password", roomID, "Carol", "9999", apperrors.ErrUnauthorized},
		{"empty name", roomID, "", "1234", apperrors.ErrValidation},
		{"empty password", roomID, "Carol", "", apperrors.ErrValidation},
		{"room full", roomID, "Carol", "1234", apperrors.ErrRoomFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := reg.JoinRoom(context.Background(), tc.roomID, tc.player, tc.password)
			if kindOf(t, err) != tc.want {
				t.Fatalf("want kind %v, got %v", tc.want, err)
			}
		})
	}
}

func TestJoinRoom_PasswordComparedVerbatim(t *testing.T) {
	reg := newTestRegistry(t)
	roomID, _, err := reg.CreateRoom(context.Background(), "Alice", "0042")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// "42" is numerically equal but not the same string
	_, _, err = reg.JoinRoom(context.Background(), roomID, "Bob", "42")
	if kindOf(t, err) != apperrors.ErrUnauthorized {
		t.Fatalf("expected Unauthorized for %q vs %q, got %v", "42", "0042", err)
	}

	if _, _, err := reg.JoinRoom(context.Background(), roomID, "Bob", "0042"); err != nil {
		t.Fatalf("exact password rejected: %v", err)
	}
}

func TestLoad_RestoresRooms(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	reg := registry.New(logger.New(), repo, shuffle.NewSeeded(7), characters.Catalog())

	roomID, playerID, err := reg.CreateRoom(context.Background(), "Alice", "1234")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reborn := registry.New(logger.New(), repo, shuffle.NewSeeded(7), characters.Catalog())
	if err := reborn.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	room, err := reborn.GetRoom(roomID)
	if err != nil {
		t.Fatalf("restored room not found: %v", err)
	}
	if !room.HasPlayer(playerID) {
		t.Fatalf("restored room lost its creator")
	}
	if !room.CheckPassword("1234") {
		t.Fatalf("restored room lost its password")
	}
}

func TestNormalizeRoomID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ab12cd", "AB12CD"},
		{" AB12CD ", "AB12CD"},
		{"Ab12Cd", "AB12CD"},
	}
	for _, tc := range cases {
		if got := registry.NormalizeRoomID(tc.in); got != tc.want {
			t.Errorf("NormalizeRoomID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
