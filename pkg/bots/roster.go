package bots

// Bot identifies one companion persona. Slug names the webhook routes
// (<slug>-comment, <slug>-chat) on the automation service.
type Bot struct {
	Username    string
	DisplayName string
	Slug        string
}

// Roster holds the configured bot identities plus the creator username.
// Rules are expressed over IsBot/Peer/Others so the roster tolerates more
// than two members, though the shipped deployment has exactly two.
type Roster struct {
	bots    []Bot
	byName  map[string]int
	creator string
}

func NewRoster(creator string, members ...Bot) *Roster {
	r := &Roster{
		bots:    members,
		byName:  make(map[string]int, len(members)),
		creator: creator,
	}
	for i, b := range members {
		r.byName[b.Username] = i
	}
	return r
}

// DefaultRoster is the two-persona deployment this service ships with.
func DefaultRoster(creator string) *Roster {
	return NewRoster(creator,
		Bot{Username: "ethan_k", DisplayName: "Ethan", Slug: "ethan"},
		Bot{Username: "elijah_b", DisplayName: "Eli", Slug: "elijah"},
	)
}

func (r *Roster) Bots() []Bot {
	out := make([]Bot, len(r.bots))
	copy(out, r.bots)
	return out
}

func (r *Roster) Creator() string { return r.creator }

func (r *Roster) IsBot(username string) bool {
	_, ok := r.byName[username]
	return ok
}

func (r *Roster) IsCreator(username string) bool {
	return username == r.creator
}

func (r *Roster) Get(username string) (Bot, bool) {
	i, ok := r.byName[username]
	if !ok {
		return Bot{}, false
	}
	return r.bots[i], true
}

// Peer returns a bot's counterpart: the next roster member in ring order.
// With two bots each is the other's peer.
func (r *Roster) Peer(username string) (Bot, bool) {
	i, ok := r.byName[username]
	if !ok || len(r.bots) < 2 {
		return Bot{}, false
	}
	return r.bots[(i+1)%len(r.bots)], true
}

// Others returns every bot except the named user (who may or may not be a
// bot themselves).
func (r *Roster) Others(username string) []Bot {
	out := make([]Bot, 0, len(r.bots))
	for _, b := range r.bots {
		if b.Username != username {
			out = append(out, b)
		}
	}
	return out
}
