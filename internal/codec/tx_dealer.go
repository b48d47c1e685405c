package codec

// ---- Dealer (v0) ----

type DealerBeginEpochTx struct {
	// If epochId is 0, the chain allocates the next epoch id deterministically.
	EpochID uint64 `json:"epochId,omitempty"`

	CommitteeSize uint32 `json:"committeeSize"`
	Threshold     uint8  `json:"threshold"`

	// Optional randomness beacon input used for deterministic committee sampling (opaque in v0).
	RandEpoch []byte `json:"randEpoch,omitempty"` // base64 in JSON

	// Optional DKG phase durations in blocks (v0 localnet). Defaults are used when omitted/zero.
	CommitBlocks    uint64 `json:"commitBlocks,omitempty"`
	ComplaintBlocks uint64 `json:"complaintBlocks,omitempty"`
	RevealBlocks    uint64 `json:"revealBlocks,omitempty"`
	FinalizeBlocks  uint64 `json:"finalizeBlocks,omitempty"`
}

type DealerDKGCommitTx struct {
	EpochID     uint64   `json:"epochId"`
	DealerID    string   `json:"dealerId"`
	Commitments [][]byte `json:"commitments"` // base64 points (32 bytes each)
}

type DealerDKGComplaintMissingTx struct {
	EpochID      uint64 `json:"epochId"`
	ComplainerID string `json:"complainerId"`
	DealerID     string `json:"dealerId"`
}

type DealerDKGComplaintInvalidTx struct {
	EpochID      uint64 `json:"epochId"`
	ComplainerID string `json:"complainerId"`
	DealerID     string `json:"dealerId"`
	ShareMsg     []byte `json:"shareMsg"` // opaque (v0)
}

type DealerDKGShareRevealTx struct {
	EpochID  uint64 `json:"epochId"`
	DealerID string `json:"dealerId"`
	ToID     string `json:"toId"`
	Share    []byte `json:"share"` // base64 scalar (32 bytes)
}

type DealerFinalizeEpochTx struct {
	EpochID uint64 `json:"epochId"`
}

type DealerDKGTimeoutTx struct {
	EpochID uint64 `json:"epochId"`
}

type DealerInitHandTx struct {
	TableID  uint64 `json:"tableId"`
	HandID   uint64 `json:"handId"`
	EpochID  uint64 `json:"epochId"`
	DeckSize uint16 `json:"deckSize,omitempty"` // default 52
}

type DealerSubmitShuffleTx struct {
	TableID    uint64 `json:"tableId"`
	HandID     uint64 `json:"handId"`
	Round      uint16 `json:"round"`
	ShufflerID string `json:"shufflerId"`
	ProofBytes []byte `json:"proofShuffle"` // base64 in JSON
}

type DealerFinalizeDeckTx struct {
	TableID uint64 `json:"tableId"`
	HandID  uint64 `json:"handId"`
}

type DealerSubmitPubShareTx struct {
	TableID     uint64 `json:"tableId"`
	HandID      uint64 `json:"handId"`
	Pos         uint8  `json:"pos"`
	ValidatorID string `json:"validatorId"`
	Share       []byte `json:"pubShare"`   // base64 in JSON
	Proof       []byte `json:"proofShare"` // base64 in JSON
}

type DealerSubmitEncShareTx struct {
	TableID     uint64 `json:"tableId"`
	HandID      uint64 `json:"handId"`
	Pos         uint8  `json:"pos"`
	ValidatorID string `json:"validatorId"`
	PKPlayer    []byte `json:"pkPlayer"`      // base64 in JSON
	EncShare    []byte `json:"encShare"`      // base64 in JSON (64 bytes u||v)
	Proof       []byte `json:"proofEncShare"` // base64 in JSON
}

type DealerFinalizeRevealTx struct {
	TableID uint64 `json:"tableId"`
	HandID  uint64 `json:"handId"`
	Pos     uint8  `json:"pos"`
}

type DealerTimeoutTx struct {
	TableID uint64 `json:"tableId"`
	HandID  uint64 `json:"handId"`
}
