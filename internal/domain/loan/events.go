package loan

import "time"

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeSettled ChangeKind = "settled"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent signals that an owner's loan collection changed. Receivers re-read
// the collection; Version is the snapshot version after the change.
type ChangeEvent struct {
	EventID string     `json:"event_id"`
	OwnerID string     `json:"owner_id"`
	LoanID  string     `json:"loan_id"`
	Kind    ChangeKind `json:"kind"`
	Version int64      `json:"version"`
	At      time.Time  `json:"at"`
}
