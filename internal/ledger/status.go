package ledger

import (
	"encoding/json"
	"fmt"
)

// StatusKind is the discriminant of a TransactionStatus.
type StatusKind string

const (
	StatusPending               StatusKind = "pending"
	StatusApproved              StatusKind = "approved"
	StatusCompleted             StatusKind = "completed"
	StatusAutoCompleted         StatusKind = "autoCompleted"
	StatusAutoCompletedRejected StatusKind = "autoCompletedRejected"
	StatusRejected              StatusKind = "rejected"
)

// TransactionStatus is a tagged variant: Reason is only meaningful when Kind
// is StatusRejected.
type TransactionStatus struct {
	Kind   StatusKind
	Reason string
}

// Status returns the payload-free status of the given kind.
func Status(kind StatusKind) TransactionStatus {
	return TransactionStatus{Kind: kind}
}

// Rejected returns a rejected status carrying reason.
func Rejected(reason string) TransactionStatus {
	return TransactionStatus{Kind: StatusRejected, Reason: reason}
}

// Settled reports whether the status is terminal.
func (s TransactionStatus) Settled() bool {
	switch s.Kind {
	case StatusCompleted, StatusAutoCompleted, StatusAutoCompletedRejected, StatusRejected:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) String() string {
	if s.Kind == StatusRejected && s.Reason != "" {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Reason)
	}
	return string(s.Kind)
}

type statusJSON struct {
	Kind   StatusKind `json:"kind"`
	Reason *string    `json:"reason,omitempty"`
}

// MarshalJSON encodes the status as {"kind": ..., "reason": ...}; reason is
// emitted only for rejected statuses.
func (s TransactionStatus) MarshalJSON() ([]byte, error) {
	out := statusJSON{Kind: s.Kind}
	if s.Kind == StatusRejected {
		reason := s.Reason
		out.Reason = &reason
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *TransactionStatus) UnmarshalJSON(data []byte) error {
	var in statusJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if err := validKind(in.Kind); err != nil {
		return err
	}
	*s = TransactionStatus{Kind: in.Kind}
	if in.Kind == StatusRejected && in.Reason != nil {
		s.Reason = *in.Reason
	}
	return nil
}

func validKind(kind StatusKind) error {
	switch kind {
	case StatusPending, StatusApproved, StatusCompleted, StatusAutoCompleted, StatusAutoCompletedRejected, StatusRejected:
		return nil
	default:
		return fmt.Errorf("unknown transaction status %q", kind)
	}
}
