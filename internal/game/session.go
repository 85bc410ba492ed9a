package game

// Phase is the lifecycle stage of a room's session
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseDrafting     Phase = "drafting"
	PhaseTeamBuilding Phase = "teamBuilding"
	PhaseVoting       Phase = "voting"
	// PhaseCompleted is a defined terminal state that no command currently
	// reaches. Clients treat it as a valid enum value.
	PhaseCompleted Phase = "completed"
)

const (
	// PoolSize is the number of characters drawn into the draft pool.
	PoolSize = 24
	// PicksPerPlayer is how many characters each player drafts.
	PicksPerPlayer = PoolSize / 2
)

// Player is one of the two drafting participants in a room
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// TeamComposition assigns a character to each of the six fixed roles.
// An empty string means the role is unassigned.
type TeamComposition struct {
	Captain     string `json:"captain,omitempty"`
	ViceCaptain string `json:"viceCaptain,omitempty"`
	Tank        string `json:"tank,omitempty"`
	Healer      string `json:"healer,omitempty"`
	Support1    string `json:"support1,omitempty"`
	Support2    string `json:"support2,omitempty"`
}

// DraftSets holds the characters each player has picked, in pick order
type DraftSets struct {
	Player1 []string `json:"player1"`
	Player2 []string `json:"player2"`
}

// Teams holds both players' compositions
type Teams struct {
	Player1 TeamComposition `json:"player1"`
	Player2 TeamComposition `json:"player2"`
}

// Session is the mutable phase/draft/team state owned by a room. Pool entries
// are nil once picked so that client-side indices stay valid across picks.
type Session struct {
	Phase       Phase     `json:"phase"`
	CurrentTurn int       `json:"currentTurn"`
	Pool        []*string `json:"shuffledCharacters"`
	Selected    DraftSets `json:"selectedCharacters"`
	Teams       Teams     `json:"teams"`
	PollID      string    `json:"pollId,omitempty"`
}

// NewSession returns a session in the waiting phase with empty draft sets
func NewSession() Session {
	return Session{
		Phase:    PhaseWaiting,
		Selected: DraftSets{Player1: []string{}, Player2: []string{}},
		Pool:     []*string{},
	}
}

// clone returns a deep copy safe to hand to other goroutines.
func (s Session) clone() Session {
	out := s
	out.Pool = make([]*string, len(s.Pool))
	for i, c := range s.Pool {
		if c != nil {
			v := *c
			out.Pool[i] = &v
		}
	}
	out.Selected = DraftSets{
		Player1: append([]string{}, s.Selected.Player1...),
		Player2: append([]string{}, s.Selected.Player2...),
	}
	return out
}

// slotKey maps a player slot to its wire identity ("player1"/"player2")
func slotKey(slot int) string {
	if slot == 0 {
		return "player1"
	}
	return "player2"
}

// draftSet returns the draft set for a slot
func (d *DraftSets) draftSet(slot int) *[]string {
	if slot == 0 {
		return &d.Player1
	}
	return &d.Player2
}

// team returns the composition for a slot
func (t *Teams) team(slot int) *TeamComposition {
	if slot == 0 {
		return &t.Player1
	}
	return &t.Player2
}
