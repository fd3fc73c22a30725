package domain

import "github.com/google/uuid"

type TxKind string

const (
	TxKindVote         TxKind = "vote"
	TxKindPollCreation TxKind = "poll_creation"
)

// Receipt is the fee sponsored transfer the relayer sends to a voter or poll
// creator as on-chain evidence of an accepted operation.
type Receipt struct {
	Kind      TxKind
	Recipient string
	Lamports  uint64
	PollID    uuid.UUID
}

// TransactionResult reports chain confirmation. LocalOnly means the operation
// committed locally while submission or confirmation did not complete.
type TransactionResult struct {
	Signature string `json:"signature,omitempty"`
	Confirmed bool   `json:"confirmed"`
	LocalOnly bool   `json:"localOnly"`
	Error     string `json:"error,omitempty"`
}

const (
	TxStatusUnknown   = "unknown"
	TxStatusProcessed = "processed"
	TxStatusConfirmed = "confirmed"
	TxStatusFinalized = "finalized"
)

type TxStatus struct {
	Signature string `json:"signature"`
	Status    string `json:"status"`
	Err       string `json:"err,omitempty"`
	Slot      uint64 `json:"slot,omitempty"`
}

func (s TxStatus) Confirmed() bool {
	return s.Err == "" && (s.Status == TxStatusConfirmed || s.Status == TxStatusFinalized)
}

func (s TxStatus) Failed() bool {
	return s.Err != ""
}
