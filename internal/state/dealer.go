package state

// ---- Dealer (confidential committee dealing) ----

type DealerState struct {
	Validators  []Validator  `json:"validators,omitempty"`
	NextEpochID uint64       `json:"nextEpochId"`
	Epoch       *DealerEpoch `json:"epoch,omitempty"`
	DKG         *DealerDKG   `json:"dkg,omitempty"`
}

type ValidatorStatus string

const (
	ValidatorActive  ValidatorStatus = "active"
	ValidatorJailed  ValidatorStatus = "jailed"
	ValidatorExiting ValidatorStatus = "exiting"
)

type Validator struct {
	ValidatorID string          `json:"validatorId"`
	PubKey      []byte          `json:"pubKey"`
	Power       uint64          `json:"power"`
	Status      ValidatorStatus `json:"status"`
	Bond        uint64          `json:"bond,omitempty"`
	SlashCount  uint32          `json:"slashCount,omitempty"`
}

// DealerEpoch is the active, DKG-completed committee: the t-of-n group whose
// combined public key PKEpoch decrypts hole cards and verifies shuffle/reveal
// proofs for hands dealt under it.
type DealerEpoch struct {
	EpochID        uint64          `json:"epochId"`
	Threshold      uint32          `json:"threshold"`
	PKEpoch        []byte          `json:"pkEpoch"`
	TranscriptRoot []byte          `json:"transcriptRoot,omitempty"`
	Slashed        map[string]bool `json:"slashed,omitempty"`
	Members        []DealerMember  `json:"members"`
}

type DealerMember struct {
	ValidatorID string `json:"validatorId"`
	Index       uint32 `json:"index"` // 1-based Shamir index
	PubShare    []byte `json:"pubShare"`
}

// DealerDKG tracks an in-progress distributed key generation round: commit,
// complaint, and reveal deadlines are enforced by `dealer/timeout` so a
// stalled round doesn't block new epochs indefinitely.
type DealerDKG struct {
	EpochID   uint64   `json:"epochId"`
	Threshold uint32   `json:"threshold"`
	Members   []string `json:"members"` // validatorIds, sampled by power

	StartHeight      int64 `json:"startHeight"`
	CommitDeadline   int64 `json:"commitDeadline"`
	ComplaintDeadline int64 `json:"complaintDeadline"`
	RevealDeadline   int64 `json:"revealDeadline"`
	FinalizeDeadline int64 `json:"finalizeDeadline"`

	RandEpoch []byte `json:"randEpoch,omitempty"` // seed for this round's sampling, fixed once chosen

	Commits    []DealerDKGCommit      `json:"commits,omitempty"`
	Complaints []DealerDKGComplaint   `json:"complaints,omitempty"`
	Reveals    []DealerDKGShareReveal `json:"reveals,omitempty"`

	Slashed   map[string]bool `json:"slashed,omitempty"`
	Penalized map[string]bool `json:"penalized,omitempty"`
}

type DealerDKGCommit struct {
	DealerID     string   `json:"dealerId"`
	Commitments  [][]byte `json:"commitments"` // Feldman VSS commitments, degree t-1
}

type DealerDKGComplaint struct {
	EpochID      uint64 `json:"epochId"`
	ComplainerID string `json:"complainerId"`
	DealerID     string `json:"dealerId"`
	Kind         string `json:"kind"` // "missing_share" | "bad_share"
	ShareMsg     []byte `json:"shareMsg,omitempty"`
}

type DealerDKGShareReveal struct {
	EpochID  uint64 `json:"epochId"`
	DealerID string `json:"dealerId"`
	ToID     string `json:"toId"`
	Share    []byte `json:"share"`
}

// DealerCiphertext is an additive-ElGamal ciphertext over a card-point
// plaintext: Dec(sk, (C1,C2)) = C2 - sk*C1.
type DealerCiphertext struct {
	C1 []byte `json:"c1"`
	C2 []byte `json:"c2"`
}

// DealerPubShare is one committee member's decryption share for a single
// deck position, with its Chaum-Pedersen equality-of-discrete-log proof.
type DealerPubShare struct {
	Pos         uint8  `json:"pos"`
	ValidatorID string `json:"validatorId"`
	Index       uint32 `json:"index"`
	Share       []byte `json:"share"`
	Proof       []byte `json:"proof"`
}

type DealerReveal struct {
	Pos    uint8 `json:"pos"`
	CardID uint8 `json:"cardId"`
}

// DealerEncShare is a re-encrypted decryption share for one seat's hole card,
// encrypted under that player's own public key so only they can open it.
type DealerEncShare struct {
	Pos         uint8  `json:"pos"`
	ValidatorID string `json:"validatorId"`
	Index       uint32 `json:"index"`
	PKPlayer    []byte `json:"pkPlayer"`
	EncShare    []byte `json:"encShare"`
	Proof       []byte `json:"proof"`
}

// DealerHand is the per-hand confidential-dealing record: the shuffled deck
// under the epoch's combined public key, the committee's decryption shares,
// and the resulting public reveals / player-encrypted hole shares.
type DealerHand struct {
	EpochID uint64 `json:"epochId"`
	PKHand  []byte `json:"pkHand,omitempty"`

	DeckSize    uint16             `json:"deckSize"`
	Deck        []DealerCiphertext `json:"deck"`
	ShuffleStep uint16             `json:"shuffleStep"`
	Finalized   bool               `json:"finalized"`

	Cursor uint8 `json:"cursor"`

	RevealPos      uint8   `json:"revealPos,omitempty"`
	RevealDeadline int64   `json:"revealDeadline,omitempty"`

	HolePos            []uint8 `json:"holePos,omitempty"`
	HoleSharesDeadline int64   `json:"holeSharesDeadline,omitempty"`
	ShuffleDeadline    int64   `json:"shuffleDeadline,omitempty"`

	PubShares []DealerPubShare `json:"pubShares,omitempty"`
	EncShares []DealerEncShare `json:"encShares,omitempty"`
	Reveals   []DealerReveal   `json:"reveals,omitempty"`
}
