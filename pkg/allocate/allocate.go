// Package allocate turns a balance snapshot and a total pool amount into a
// proportional recipient list.
package allocate

import (
	"errors"

	"github.com/canopy-network/dropx/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// ErrEmptyPool is returned when the filtered snapshot sums to zero, which
// would otherwise divide by zero.
var ErrEmptyPool = errors.New("allocation pool is empty: no snapshot balance above the threshold")

// Params filter the snapshot before shares are computed.
type Params struct {
	// Total is the pool amount T, in token atomic units.
	Total uint64

	// MinimumBalance drops records below the threshold before allocation.
	MinimumBalance uint64

	// Blacklist drops the listed holders (typically the funding wallet)
	// before allocation.
	Blacklist []solana.PublicKey
}

// Build computes each holder's share as floor(balance * Total / sum) over
// the filtered snapshot. The multiply runs at 256-bit width, so no
// combination of balance and Total can overflow before the divide. Holders
// whose floored share is zero never enter the list. The rounding shortfall
// sum(shares) <= Total is left unallocated deliberately.
func Build(snap wallet.Snapshot, p Params) (wallet.List, error) {
	blacklisted := make(map[solana.PublicKey]struct{}, len(p.Blacklist))
	for _, pk := range p.Blacklist {
		blacklisted[pk] = struct{}{}
	}

	eligible := make(wallet.Snapshot, 0, len(snap))
	sum := new(uint256.Int)
	for _, r := range snap {
		if r.Balance < p.MinimumBalance {
			continue
		}
		if _, banned := blacklisted[r.Holder]; banned {
			continue
		}
		eligible = append(eligible, r)
		sum.Add(sum, uint256.NewInt(r.Balance))
	}
	if sum.IsZero() {
		return nil, ErrEmptyPool
	}

	total := uint256.NewInt(p.Total)
	list := make(wallet.List, 0, len(eligible))
	share := new(uint256.Int)
	for _, r := range eligible {
		share.Mul(uint256.NewInt(r.Balance), total)
		share.Div(share, sum)
		amount := share.Uint64()
		if amount == 0 {
			continue
		}
		list = append(list, &wallet.Entry{
			Holder: r.Holder,
			Amount: amount,
			Status: wallet.Unprocessed(),
		})
	}
	list.Sort()
	return list, nil
}
