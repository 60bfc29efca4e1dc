package wallet

import (
	"sort"

	"github.com/gagliardetto/solana-go"
)

// List is the run's recipient set, ordered by holder address. It is owned by
// exactly one stage at a time and mutated in place.
type List []*Entry

// Sort orders the list by holder address, the key used for deterministic
// persistence and checkpoint diffing.
func (l List) Sort() {
	sort.Slice(l, func(i, j int) bool {
		return l[i].Holder.String() < l[j].Holder.String()
	})
}

// Count returns how many entries currently hold the given kind.
func (l List) Count(kind Kind) int {
	n := 0
	for _, e := range l {
		if e.Status.Kind() == kind {
			n++
		}
	}
	return n
}

// CountByStatus returns per-tag entry counts for operator reports.
func (l List) CountByStatus() map[string]int {
	counts := make(map[string]int)
	for _, e := range l {
		counts[e.Status.String()]++
	}
	return counts
}

// ResetFailedToUnprocessed rewinds every Failed entry for another
// qualification pass.
func (l List) ResetFailedToUnprocessed() {
	for _, e := range l {
		e.transition(KindFailed, Unprocessed())
	}
}

// ResetFailedToQualified rewinds every Failed entry for another transfer
// pass.
func (l List) ResetFailedToQualified() {
	for _, e := range l {
		e.transition(KindFailed, Qualified())
	}
}

// ExcludeFailed retires every Failed entry, preserving its reason. Excluded
// entries require manual review before any further run touches them.
func (l List) ExcludeFailed() {
	for _, e := range l {
		if reason, ok := e.Status.Reason(); ok && e.Status.Kind() == KindFailed {
			e.Status = Excluded(reason)
		}
	}
}

// FailUnconfirmed demotes every Unconfirmed entry using reason, which
// receives the entry's submission signature. Callers tag the reason so a
// possible false negative is never mistaken for a definite failure.
func (l List) FailUnconfirmed(reason func(sig solana.Signature) string) {
	for _, e := range l {
		if sig, ok := e.Status.Signature(); ok && e.Status.Kind() == KindUnconfirmed {
			e.Status = Failed(reason(sig))
		}
	}
}

// SucceedUnconfirmed promotes every Unconfirmed entry that references sig.
// Entries sharing a signature were in the same transaction, so they resolve
// together.
func (l List) SucceedUnconfirmed(sig solana.Signature) {
	for _, e := range l {
		if s, ok := e.Status.Signature(); ok && e.Status.Kind() == KindUnconfirmed && s == sig {
			e.Status = Succeeded(sig)
		}
	}
}

// UnconfirmedSignatures returns the distinct submission signatures still
// awaiting reconciliation.
func (l List) UnconfirmedSignatures() []solana.Signature {
	seen := make(map[solana.Signature]struct{})
	var sigs []solana.Signature
	for _, e := range l {
		if sig, ok := e.Status.Signature(); ok && e.Status.Kind() == KindUnconfirmed {
			if _, dup := seen[sig]; !dup {
				seen[sig] = struct{}{}
				sigs = append(sigs, sig)
			}
		}
	}
	return sigs
}
