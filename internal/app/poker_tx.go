package app

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/discordwell/OnChainPoker-sub002/internal/codec"
	"github.com/discordwell/OnChainPoker-sub002/internal/ocpcrypto"
	"github.com/discordwell/OnChainPoker-sub002/internal/state"
)

func pokerCreateTable(st *state.State, env codec.TxEnvelope) *abci.ExecTxResult {
	var msg codec.PokerCreateTableTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad poker/create_table value"}
	}
	if msg.Creator == "" {
		return &abci.ExecTxResult{Code: 1, Log: "missing creator"}
	}
	if err := requireAccountAuth(st, env, msg.Creator); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	maxPlayers := msg.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 9
	}
	if maxPlayers != 9 {
		return &abci.ExecTxResult{Code: 1, Log: "v0 supports maxPlayers=9 only"}
	}
	if msg.SmallBlind == 0 || msg.BigBlind == 0 || msg.BigBlind < msg.SmallBlind {
		return &abci.ExecTxResult{Code: 1, Log: "invalid blinds"}
	}
	if msg.MinBuyIn == 0 || msg.MaxBuyIn == 0 || msg.MaxBuyIn < msg.MinBuyIn {
		return &abci.ExecTxResult{Code: 1, Log: "invalid buy-in range"}
	}

	id := st.NextTableID
	st.NextTableID++
	t := &state.Table{
		ID:      id,
		Creator: msg.Creator,
		Label:   msg.TableLabel,
		Params: state.TableParams{
			MaxPlayers: maxPlayers,
			SmallBlind: msg.SmallBlind,
			BigBlind:   msg.BigBlind,
			MinBuyIn:   msg.MinBuyIn,
			MaxBuyIn:   msg.MaxBuyIn,

			ActionTimeoutSecs: msg.ActionTO,
			DealerTimeoutSecs: msg.DealerTO,
			PlayerBond:        msg.PlayerBond,
			RakeBps:           msg.RakeBps,

			ForfeitBlindsOnAbort: msg.ForfeitBlindsOnAbort,
		},
		NextHandID: 1,
		ButtonSeat: -1,
		Hand:       nil,
	}
	st.Tables[id] = t

	return okEvent("TableCreated", map[string]string{
		"tableId": fmt.Sprintf("%d", id),
	})
}

func pokerSit(st *state.State, env codec.TxEnvelope) *abci.ExecTxResult {
	var msg codec.PokerSitTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad poker/sit value"}
	}
	if msg.Player == "" {
		return &abci.ExecTxResult{Code: 1, Log: "missing player"}
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	t := st.Tables[msg.TableID]
	if t == nil {
		return &abci.ExecTxResult{Code: 1, Log: "table not found"}
	}
	if msg.Seat >= 9 {
		return &abci.ExecTxResult{Code: 1, Log: "invalid seat"}
	}
	if t.Seats[msg.Seat] != nil {
		return &abci.ExecTxResult{Code: 1, Log: "seat occupied"}
	}
	if msg.BuyIn < t.Params.MinBuyIn || msg.BuyIn > t.Params.MaxBuyIn {
		return &abci.ExecTxResult{Code: 1, Log: "buy-in out of range"}
	}
	var pkPlayer []byte
	if strings.TrimSpace(msg.PKPlayer) != "" {
		b, err := base64.StdEncoding.DecodeString(msg.PKPlayer)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "invalid pkPlayer: must be base64"}
		}
		if len(b) != ocpcrypto.PointBytes {
			return &abci.ExecTxResult{Code: 1, Log: "invalid pkPlayer: must decode to 32 bytes"}
		}
		if _, err := ocpcrypto.PointFromBytesCanonical(b); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "invalid pkPlayer point"}
		}
		pkPlayer = b
	}
	bond := t.Params.PlayerBond
	if msg.BuyIn > ^uint64(0)-bond {
		return &abci.ExecTxResult{Code: 1, Log: "buy-in plus bond overflows"}
	}
	if err := st.Debit(msg.Player, msg.BuyIn+bond); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	t.Seats[msg.Seat] = &state.Seat{
		Player: msg.Player,
		PK:     pkPlayer,
		Stack:  msg.BuyIn,
		Bond:   bond,
	}
	return okEvent("PlayerSat", map[string]string{
		"tableId": fmt.Sprintf("%d", msg.TableID),
		"seat":    fmt.Sprintf("%d", msg.Seat),
		"player":  msg.Player,
		"buyIn":   fmt.Sprintf("%d", msg.BuyIn),
	})
}

func pokerStartHand(st *state.State, env codec.TxEnvelope, height int64, nowUnix int64) *abci.ExecTxResult {
	var msg codec.PokerStartHandTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad poker/start_hand value"}
	}
	if msg.Caller == "" {
		return &abci.ExecTxResult{Code: 1, Log: "missing caller"}
	}
	if err := requireAccountAuth(st, env, msg.Caller); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	t := st.Tables[msg.TableID]
	if t == nil {
		return &abci.ExecTxResult{Code: 1, Log: "table not found"}
	}
	if seatOfPlayer(t, msg.Caller) < 0 {
		return &abci.ExecTxResult{Code: 1, Log: "caller not seated at table"}
	}
	if t.Hand != nil {
		return &abci.ExecTxResult{Code: 1, Log: "hand already in progress"}
	}
	activeSeats := occupiedSeatsWithStack(t)
	if len(activeSeats) < 2 {
		return &abci.ExecTxResult{Code: 1, Log: "need at least 2 players with chips"}
	}

	epoch := st.Dealer.Epoch
	useDealer := epoch != nil
	if useDealer {
		// Dealer mode needs every funded seat's pk; check before touching the table.
		for _, i := range activeSeats {
			if len(t.Seats[i].PK) != ocpcrypto.PointBytes {
				return &abci.ExecTxResult{Code: 1, Log: fmt.Sprintf("seat %d missing pk; required for dealer mode", i)}
			}
		}
	}

	handId := t.NextHandID
	t.NextHandID++

	// Advance button to next funded seat (or first if unset).
	if t.ButtonSeat < 0 {
		t.ButtonSeat = activeSeats[0]
	} else {
		t.ButtonSeat = nextOccupiedSeat(t, t.ButtonSeat)
	}

	// Clear any previous hole cards.
	for i := 0; i < 9; i++ {
		if t.Seats[i] == nil {
			continue
		}
		t.Seats[i].Hole = [2]state.Card{}
	}

	// Determine blinds and build initial hand state.
	sbSeat, bbSeat := blindSeats(t)
	if sbSeat < 0 || bbSeat < 0 {
		return &abci.ExecTxResult{Code: 1, Log: "cannot determine blinds"}
	}

	var inHand [9]bool
	for i := 0; i < 9; i++ {
		if t.Seats[i] != nil && t.Seats[i].Stack > 0 {
			inHand[i] = true
		}
	}

	var lastActed [9]int
	for i := 0; i < 9; i++ {
		lastActed[i] = -1
	}

	deck := []state.Card{}
	if !useDealer {
		// DealerStub: deterministic deck seed = H(height||tableId||handId).
		seed := []byte(fmt.Sprintf("%d|%d|%d", height, msg.TableID, handId))
		deck = state.DeterministicDeck(seed)
	}

	h := &state.Hand{
		HandID:            handId,
		Phase:             state.PhaseBetting,
		Street:            state.StreetPreflop,
		ButtonSeat:        t.ButtonSeat,
		SmallBlindSeat:    sbSeat,
		BigBlindSeat:      bbSeat,
		ActionOn:          -1,
		BetTo:             0,
		MinRaiseSize:      t.Params.BigBlind,
		IntervalID:        0,
		LastIntervalActed: lastActed,
		Deck:              deck,
		DeckCursor:        0,
		Board:             []state.Card{},
	}
	// Note: the remaining fixed-size arrays default to zero values.
	h.InHand = inHand
	t.Hand = h

	// Post blinds (all-in if short).
	if err := postBlindCommit(t, sbSeat, t.Params.SmallBlind); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "small blind: " + err.Error()}
	}
	if err := postBlindCommit(t, bbSeat, t.Params.BigBlind); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "big blind: " + err.Error()}
	}
	h.BetTo = h.StreetCommit[bbSeat]
	h.MinRaiseSize = t.Params.BigBlind

	// Preflop action starts left of the big blind (even if we are still shuffling / dealing privately).
	h.ActionOn = nextActiveToAct(t, h, bbSeat)

	ev := okEvent("HandStarted", map[string]string{
		"tableId":        fmt.Sprintf("%d", msg.TableID),
		"handId":         fmt.Sprintf("%d", handId),
		"buttonSeat":     fmt.Sprintf("%d", t.ButtonSeat),
		"smallBlindSeat": fmt.Sprintf("%d", sbSeat),
		"bigBlindSeat":   fmt.Sprintf("%d", bbSeat),
		"actionOn":       fmt.Sprintf("%d", h.ActionOn),
	})
	if useDealer {
		// Dealer module: start in shuffle/deal phase, initialize the encrypted deck.
		h.Phase = state.PhaseShuffle
		initEv, err := dealerInitHand(st, t, codec.DealerInitHandTx{
			TableID:  msg.TableID,
			HandID:   handId,
			EpochID:  epoch.EpochID,
			DeckSize: 0,
		}, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev.Events = append(ev.Events, initEv.Events...)
	} else {
		// DealerStub: deal hole cards publicly.
		dealHoleCards(t)
		// Emit hole cards as part of the tx (public dealing stub).
		ev.Events = append(ev.Events, holeCardEvents(msg.TableID, handId, t)...)
		// If no action is possible (everyone all-in), run out and settle immediately.
		if h.ActionOn == -1 {
			ev.Events = append(ev.Events, runoutAndSettleHand(t)...)
		}
	}

	return ev
}

func pokerAct(st *state.State, env codec.TxEnvelope) *abci.ExecTxResult {
	var msg codec.PokerActTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad poker/act value"}
	}
	if msg.Player == "" {
		return &abci.ExecTxResult{Code: 1, Log: "missing player"}
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	t := st.Tables[msg.TableID]
	if t == nil {
		return &abci.ExecTxResult{Code: 1, Log: "table not found"}
	}
	if t.Hand == nil {
		return &abci.ExecTxResult{Code: 1, Log: "no active hand"}
	}
	h := t.Hand
	if h.Phase != state.PhaseBetting {
		return &abci.ExecTxResult{Code: 1, Log: "hand not in betting phase"}
	}
	if h.ActionOn < 0 || h.ActionOn >= 9 || t.Seats[h.ActionOn] == nil {
		return &abci.ExecTxResult{Code: 1, Log: "invalid actionOn seat"}
	}
	if t.Seats[h.ActionOn].Player != msg.Player {
		return &abci.ExecTxResult{Code: 1, Log: "not your turn"}
	}
	res := applyAction(t, msg.Action, msg.Amount)
	if res.Code != 0 {
		return res
	}
	res.Events = append(res.Events, abci.Event{
		Type: "ActionApplied",
		Attributes: []abci.EventAttribute{
			{Key: "tableId", Value: fmt.Sprintf("%d", msg.TableID), Index: true},
			{Key: "handId", Value: fmt.Sprintf("%d", h.HandID), Index: true},
			{Key: "player", Value: msg.Player, Index: true},
			{Key: "action", Value: msg.Action, Index: true},
			// Semantics: for bet/raise, amount is the desired total street commitment ("BetTo").
			{Key: "amount", Value: fmt.Sprintf("%d", msg.Amount), Index: false},
			{Key: "phase", Value: string(h.Phase), Index: true},
			{Key: "street", Value: string(h.Street), Index: true},
			{Key: "actionOn", Value: fmt.Sprintf("%d", h.ActionOn), Index: true},
		},
	})
	return res
}
