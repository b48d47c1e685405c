package app

import (
	"fmt"
	"math"

	"github.com/discordwell/OnChainPoker-sub002/internal/state"
)

const defaultDealerTimeoutSecs uint64 = 120

// addInt64AndU64Checked returns a+b, or an error naming what if b or the sum
// does not fit in an int64.
func addInt64AndU64Checked(a int64, b uint64, what string) (int64, error) {
	if b > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("%s: delta %d overflows int64", what, b)
	}
	if a > math.MaxInt64-int64(b) {
		return 0, fmt.Errorf("%s: %d + %d overflows int64", what, a, b)
	}
	return a + int64(b), nil
}

// setActionDeadlineIfBetting sets hand.ActionDeadline to now+actionTimeoutSecs
// while the hand is betting with a seat to act, and clears it otherwise.
func setActionDeadlineIfBetting(t *state.Table, nowUnix int64) error {
	if t == nil || t.Hand == nil {
		return nil
	}
	h := t.Hand
	if h.Phase != state.PhaseBetting || h.ActionOn < 0 || t.Params.ActionTimeoutSecs == 0 {
		h.ActionDeadline = 0
		return nil
	}
	dl, err := addInt64AndU64Checked(nowUnix, t.Params.ActionTimeoutSecs, "action deadline")
	if err != nil {
		return err
	}
	h.ActionDeadline = dl
	return nil
}

func tableDealerTimeoutSecs(t *state.Table) uint64 {
	if t == nil {
		return defaultDealerTimeoutSecs
	}
	if t.Params.DealerTimeoutSecs == 0 {
		return defaultDealerTimeoutSecs
	}
	return t.Params.DealerTimeoutSecs
}

func setRevealDeadlineIfAwaiting(t *state.Table, nowUnix int64) error {
	if t == nil || t.Hand == nil || t.Hand.Dealer == nil {
		return nil
	}
	dh := t.Hand.Dealer

	pos, awaiting, err := dealerExpectedRevealPos(t)
	if err != nil {
		return err
	}
	if !awaiting {
		dh.RevealPos = 255
		dh.RevealDeadline = 0
		return nil
	}

	to := tableDealerTimeoutSecs(t)
	if to == 0 {
		return fmt.Errorf("invalid dealerTimeoutSecs")
	}
	dh.RevealPos = pos
	dh.RevealDeadline = nowUnix + int64(to)
	return nil
}
