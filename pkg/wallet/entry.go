package wallet

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// Entry is one recipient for the lifetime of a run. Entries are never
// removed from a list, only transitioned.
type Entry struct {
	// Holder is the unique key of the entry.
	Holder solana.PublicKey

	// Amount is the airdrop share in token atomic units.
	Amount uint64

	// Destination is the token account the transfer is addressed to,
	// derived lazily from the holder and cached. Nil until resolved; once
	// set it is never recomputed.
	Destination *solana.PublicKey

	Status Status
}

// Record encodes the entry as its checkpoint row:
// holder, amount, destination-or-empty, status tag, status payload-or-empty.
func (e *Entry) Record() []string {
	dest := ""
	if e.Destination != nil {
		dest = e.Destination.String()
	}
	tag, payload := e.Status.Record()
	return []string{
		e.Holder.String(),
		strconv.FormatUint(e.Amount, 10),
		dest,
		tag,
		payload,
	}
}

// ParseEntry decodes a checkpoint row. A malformed holder or status is a
// hard error; a malformed cached destination is treated as absent so the
// checker recomputes it on the next pass.
func ParseEntry(record []string) (*Entry, error) {
	if len(record) < 2 {
		return nil, fmt.Errorf("entry row needs at least holder and amount, got %d fields", len(record))
	}
	holder, err := solana.PublicKeyFromBase58(record[0])
	if err != nil {
		return nil, fmt.Errorf("malformed holder address %q: %w", record[0], err)
	}
	amount, err := strconv.ParseUint(record[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed amount %q for %s: %w", record[1], holder, err)
	}

	e := &Entry{Holder: holder, Amount: amount, Status: Unprocessed()}

	if len(record) > 2 && record[2] != "" {
		if dest, derr := solana.PublicKeyFromBase58(record[2]); derr == nil {
			e.Destination = &dest
		}
	}

	tag, payload := "", ""
	if len(record) > 3 {
		tag = record[3]
	}
	if len(record) > 4 {
		payload = record[4]
	}
	status, err := ParseStatus(tag, payload)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", holder, err)
	}
	e.Status = status
	return e, nil
}

// transition moves the entry to next only when its current kind matches
// from. Terminal states never match any from kind used by the helpers below.
func (e *Entry) transition(from Kind, next Status) bool {
	if e.Status.kind != from {
		return false
	}
	e.Status = next
	return true
}
