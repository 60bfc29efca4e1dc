package wallet

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// BalanceRecord is one holder's aggregate balance at snapshot time.
// Immutable once captured.
type BalanceRecord struct {
	Holder  solana.PublicKey
	Balance uint64
}

// Snapshot is a deduplicated, holder-sorted balance capture.
type Snapshot []BalanceRecord

func (s Snapshot) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Holder.String() < s[j].Holder.String()
	})
}

// TotalBalance sums every record. Used for operator reporting only; the
// allocation engine does its own overflow-safe summation.
func (s Snapshot) TotalBalance() uint64 {
	var total uint64
	for _, r := range s {
		total += r.Balance
	}
	return total
}

// Record encodes the balance as its checkpoint row: holder, balance.
func (r BalanceRecord) Record() []string {
	return []string{r.Holder.String(), strconv.FormatUint(r.Balance, 10)}
}

// ParseBalanceRecord decodes a snapshot row. Both fields are load-bearing,
// so either being malformed is a hard error.
func ParseBalanceRecord(record []string) (BalanceRecord, error) {
	if len(record) < 2 {
		return BalanceRecord{}, fmt.Errorf("snapshot row needs holder and balance, got %d fields", len(record))
	}
	holder, err := solana.PublicKeyFromBase58(record[0])
	if err != nil {
		return BalanceRecord{}, fmt.Errorf("malformed holder address %q: %w", record[0], err)
	}
	balance, err := strconv.ParseUint(record[1], 10, 64)
	if err != nil {
		return BalanceRecord{}, fmt.Errorf("malformed balance %q for %s: %w", record[1], holder, err)
	}
	return BalanceRecord{Holder: holder, Balance: balance}, nil
}
