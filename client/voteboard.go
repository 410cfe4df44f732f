package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Tally is what a view shows for one target.
type Tally struct {
	Up   int
	Down int
	// Mine is the caller's vote, "" when none.
	Mine string
}

// apply returns the tally after the caller votes voteType, following the
// ledger rules: same vote toggles off, the other vote switches.
func (t Tally) apply(voteType string) Tally {
	next := t
	switch {
	case t.Mine == voteType:
		next.adjust(voteType, -1)
		next.Mine = ""
	case t.Mine != "":
		next.adjust(t.Mine, -1)
		next.adjust(voteType, 1)
		next.Mine = voteType
	default:
		next.adjust(voteType, 1)
		next.Mine = voteType
	}
	return next
}

func (t *Tally) adjust(voteType string, delta int) {
	if voteType == Downvote {
		t.Down += delta
		return
	}
	t.Up += delta
}

type boardKey struct {
	kind string
	id   uuid.UUID
}

// Voter is the subset of Client a VoteBoard needs.
type Voter interface {
	CastVote(ctx context.Context, targetID uuid.UUID, targetType, voteType string) (*VoteResult, error)
}

// VoteBoard keeps the tallies a view displays and updates them
// optimistically. Each vote is applied locally at once, then replaced by the
// server's counters, or rolled back to the snapshot taken before the
// tentative change when the request fails.
type VoteBoard struct {
	voter Voter

	mu      sync.Mutex
	tallies map[boardKey]Tally
}

// NewVoteBoard creates an empty board.
func NewVoteBoard(voter Voter) *VoteBoard {
	return &VoteBoard{voter: voter, tallies: map[boardKey]Tally{}}
}

// Load sets the known tally of a target, typically from a page fetch.
func (b *VoteBoard) Load(targetType string, targetID uuid.UUID, t Tally) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tallies[boardKey{targetType, targetID}] = t
}

// Tally returns the displayed tally of a target.
func (b *VoteBoard) Tally(targetType string, targetID uuid.UUID) Tally {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tallies[boardKey{targetType, targetID}]
}

// Vote applies the vote tentatively, sends it, and settles the tally. The
// returned tally is what the board shows afterwards.
func (b *VoteBoard) Vote(ctx context.Context, targetType string, targetID uuid.UUID, voteType string) (Tally, error) {
	key := boardKey{targetType, targetID}

	b.mu.Lock()
	snapshot := b.tallies[key]
	b.tallies[key] = snapshot.apply(voteType)
	b.mu.Unlock()

	res, err := b.voter.CastVote(ctx, targetID, targetType, voteType)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.tallies[key] = snapshot
		return snapshot, err
	}
	settled := Tally{Up: res.UpvoteCount, Down: res.DownvoteCount}
	if res.VoteType != nil {
		settled.Mine = *res.VoteType
	}
	b.tallies[key] = settled
	return settled, nil
}
