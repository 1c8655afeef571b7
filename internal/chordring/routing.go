package chordring

import (
	"context"
	"fmt"
	"math/big"

	"github.com/abentley/chordring/internal/ringmath"
)

// routingIterationCap bounds find_predecessor's loop. The source's
// termination argument assumes a consistent ring and always converges;
// this cap exists only so a ring-consistency bug turns into an error
// instead of a hung goroutine.
const routingIterationCap = 256

// FindSuccessor implements spec.md §4's find_successor(start, key):
// locate start's predecessor for key, then ask it for its successor.
// start need not be local; join calls this with a bootstrap location,
// lookup calls it with the handling vnode's own location.
func FindSuccessor(ctx context.Context, t Transport, start ringmath.Location, key *big.Int) (ringmath.Location, error) {
	pred, err := findPredecessor(ctx, t, start, key)
	if err != nil {
		return ringmath.Location{}, err
	}
	return t.GetSuccessor(ctx, pred)
}

// findPredecessor walks cur forward via closest_preceding_finger until
// key falls in (cur.id, successor(cur).id].
func findPredecessor(ctx context.Context, t Transport, start ringmath.Location, key *big.Int) (ringmath.Location, error) {
	cur := start
	for i := 0; i < routingIterationCap; i++ {
		succ, err := t.GetSuccessor(ctx, cur)
		if err != nil {
			return ringmath.Location{}, fmt.Errorf("chordring: find_predecessor: get_successor(%s): %w", cur, err)
		}
		if ringmath.InRange(key, cur.ID, false, succ.ID, true) {
			return cur, nil
		}
		next, err := t.ClosestPrecedingFinger(ctx, cur, key)
		if err != nil {
			return ringmath.Location{}, fmt.Errorf("chordring: find_predecessor: closest_preceding_finger(%s): %w", cur, err)
		}
		if next.Equal(cur) {
			// closest_preceding_finger found nothing strictly closer
			// than cur itself; looping again would just repeat the same
			// query forever, so treat cur as the answer rather than
			// burn the iteration cap.
			return cur, nil
		}
		cur = next
	}
	return ringmath.Location{}, fmt.Errorf("%w: started at %s, key %s", ErrRoutingExhausted, start, key.String())
}
