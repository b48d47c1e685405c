package codec

// ---- Poker ----

type PokerCreateTableTx struct {
	Creator    string `json:"creator"`
	SmallBlind uint64 `json:"smallBlind"`
	BigBlind   uint64 `json:"bigBlind"`
	MinBuyIn   uint64 `json:"minBuyIn"`
	MaxBuyIn   uint64 `json:"maxBuyIn"`
	ActionTO   uint64 `json:"actionTimeoutSecs,omitempty"`
	DealerTO   uint64 `json:"dealerTimeoutSecs,omitempty"`
	PlayerBond uint64 `json:"playerBond,omitempty"`
	RakeBps    uint32 `json:"rakeBps,omitempty"`
	MaxPlayers uint8  `json:"maxPlayers,omitempty"` // default 9
	TableLabel string `json:"label,omitempty"`

	// ForfeitBlindsOnAbort: see state.TableParams. Carried through table
	// creation so a table opts into (or out of) forfeiting blinds/bets on a
	// dealer-aborted hand at creation time.
	ForfeitBlindsOnAbort bool `json:"forfeitBlindsOnAbort,omitempty"`
}

type PokerSitTx struct {
	Player   string `json:"player"`
	TableID  uint64 `json:"tableId"`
	Seat     uint8  `json:"seat"`
	BuyIn    uint64 `json:"buyIn"`
	PKPlayer string `json:"pkPlayer,omitempty"` // accepted but unused in DealerStub
}

type PokerStartHandTx struct {
	Caller  string `json:"caller"`
	TableID uint64 `json:"tableId"`
}

type PokerActTx struct {
	Player  string `json:"player"`
	TableID uint64 `json:"tableId"`
	Action  string `json:"action"`           // fold|check|call|bet|raise
	Amount  uint64 `json:"amount,omitempty"` // for bet/raise only: desired total street commitment ("BetTo")
}

type PokerTickTx struct {
	TableID uint64 `json:"tableId"`
}

type PokerLeaveTx struct {
	Player  string `json:"player"`
	TableID uint64 `json:"tableId"`
}
