package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Kind discriminates the status union.
type Kind uint8

const (
	KindUnprocessed Kind = iota
	KindDisqualified
	KindQualified
	KindUnconfirmed
	KindSucceeded
	KindFailed
	KindExcluded
)

var kindTags = map[Kind]string{
	KindUnprocessed:  "unprocessed",
	KindDisqualified: "disqualified",
	KindQualified:    "qualified",
	KindUnconfirmed:  "unconfirmed",
	KindSucceeded:    "succeeded",
	KindFailed:       "failed",
	KindExcluded:     "excluded",
}

// Status is the per-recipient lifecycle state. Unconfirmed and Succeeded
// carry the signature of the transaction that paid the recipient; Failed and
// Excluded carry a human-readable reason. Succeeded, Disqualified and
// Excluded are terminal: no transition helper in this package leaves them.
type Status struct {
	kind   Kind
	sig    solana.Signature
	reason string
}

func Unprocessed() Status  { return Status{kind: KindUnprocessed} }
func Disqualified() Status { return Status{kind: KindDisqualified} }
func Qualified() Status    { return Status{kind: KindQualified} }

func Unconfirmed(sig solana.Signature) Status { return Status{kind: KindUnconfirmed, sig: sig} }
func Succeeded(sig solana.Signature) Status   { return Status{kind: KindSucceeded, sig: sig} }

func Failed(reason string) Status   { return Status{kind: KindFailed, reason: reason} }
func Excluded(reason string) Status { return Status{kind: KindExcluded, reason: reason} }

func (s Status) Kind() Kind { return s.kind }

// Signature returns the submission signature for Unconfirmed and Succeeded.
func (s Status) Signature() (solana.Signature, bool) {
	if s.kind == KindUnconfirmed || s.kind == KindSucceeded {
		return s.sig, true
	}
	return solana.Signature{}, false
}

// Reason returns the failure reason for Failed and Excluded.
func (s Status) Reason() (string, bool) {
	if s.kind == KindFailed || s.kind == KindExcluded {
		return s.reason, true
	}
	return "", false
}

// Terminal reports whether no further transition is legal.
func (s Status) Terminal() bool {
	switch s.kind {
	case KindSucceeded, KindDisqualified, KindExcluded:
		return true
	}
	return false
}

func (s Status) String() string { return kindTags[s.kind] }

// Record encodes the status as its checkpoint (tag, payload) pair.
func (s Status) Record() (string, string) {
	switch s.kind {
	case KindUnconfirmed, KindSucceeded:
		return kindTags[s.kind], s.sig.String()
	case KindFailed, KindExcluded:
		return kindTags[s.kind], s.reason
	default:
		return kindTags[s.kind], ""
	}
}

// ParseStatus decodes a checkpoint (tag, payload) pair. Only the pairs in
// the validity table are legal; everything else is a hard parse error so a
// hand-edited checkpoint cannot smuggle in an impossible state. An empty tag
// reads as Unprocessed, matching freshly allocated lists.
func ParseStatus(tag, payload string) (Status, error) {
	switch tag {
	case "", "unprocessed":
		if payload != "" {
			return Status{}, fmt.Errorf("status %q must not carry a payload", tag)
		}
		return Unprocessed(), nil
	case "disqualified":
		if payload != "" {
			return Status{}, fmt.Errorf("status %q must not carry a payload", tag)
		}
		return Disqualified(), nil
	case "qualified":
		if payload != "" {
			return Status{}, fmt.Errorf("status %q must not carry a payload", tag)
		}
		return Qualified(), nil
	case "unconfirmed", "succeeded":
		sig, err := solana.SignatureFromBase58(payload)
		if err != nil {
			return Status{}, fmt.Errorf("status %q carries malformed signature %q: %w", tag, payload, err)
		}
		if tag == "unconfirmed" {
			return Unconfirmed(sig), nil
		}
		return Succeeded(sig), nil
	case "failed":
		if payload == "" {
			return Status{}, fmt.Errorf("status %q requires a reason", tag)
		}
		return Failed(payload), nil
	case "excluded":
		if payload == "" {
			return Status{}, fmt.Errorf("status %q requires a reason", tag)
		}
		return Excluded(payload), nil
	default:
		return Status{}, fmt.Errorf("unknown status tag %q", tag)
	}
}
