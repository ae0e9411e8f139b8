package types

import (
	"regexp"
	"sort"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/gmath"
)

// Uint is the coin amount type: an unsigned 256-bit integer, wide enough
// for any realistic token supply while still fitting the generic Int[W]
// family.
type Uint = gmath.Uint256

var denomSegmentRE = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateDenom checks that denom is a non-empty `/`-separated sequence of
// segments each matching [a-zA-Z0-9]+.
func ValidateDenom(denom string) error {
	if denom == "" {
		return grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "denom must not be empty")
	}
	start := 0
	for i := 0; i <= len(denom); i++ {
		if i == len(denom) || denom[i] == '/' {
			seg := denom[start:i]
			if !denomSegmentRE.MatchString(seg) {
				return grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "invalid denom segment %q in %q", seg, denom)
			}
			start = i + 1
		}
	}
	return nil
}

// Coin is a (denom, amount) pair.
type Coin struct {
	Denom  string `json:"denom"`
	Amount Uint   `json:"amount"`
}

// Coins is a denom-unique, denom-sorted collection. Arithmetic never
// produces zero entries.
type Coins struct {
	byDenom map[string]Uint
}

func NewCoins() Coins { return Coins{byDenom: map[string]Uint{}} }

func CoinsFrom(coins ...Coin) (Coins, error) {
	c := NewCoins()
	for _, coin := range coins {
		if err := c.Add(coin.Denom, coin.Amount); err != nil {
			return Coins{}, err
		}
	}
	return c, nil
}

func (c *Coins) ensure() {
	if c.byDenom == nil {
		c.byDenom = map[string]Uint{}
	}
}

// Add increases the balance of denom by amount, never leaving a zero entry.
func (c *Coins) Add(denom string, amount Uint) error {
	if err := ValidateDenom(denom); err != nil {
		return err
	}
	c.ensure()
	cur, ok := c.byDenom[denom]
	if !ok {
		cur = gmath.Zero[gmath.U256]()
	}
	sum, err := cur.CheckedAdd(amount)
	if err != nil {
		return err
	}
	if !sum.IsZero() {
		c.byDenom[denom] = sum
	} else {
		delete(c.byDenom, denom)
	}
	return nil
}

// Sub decreases the balance of denom by amount, erroring if it would go
// negative (Coins amounts are unsigned), and removing the entry if the
// result is zero.
func (c *Coins) Sub(denom string, amount Uint) error {
	c.ensure()
	cur, ok := c.byDenom[denom]
	if !ok {
		cur = gmath.Zero[gmath.U256]()
	}
	diff, err := cur.CheckedSub(amount)
	if err != nil {
		return grugerrors.New(grugerrors.ERR_OVERFLOW, "insufficient balance of %s", denom)
	}
	if diff.IsZero() {
		delete(c.byDenom, denom)
	} else {
		c.byDenom[denom] = diff
	}
	return nil
}

func (c Coins) AmountOf(denom string) Uint {
	if c.byDenom == nil {
		return gmath.Zero[gmath.U256]()
	}
	if v, ok := c.byDenom[denom]; ok {
		return v
	}
	return gmath.Zero[gmath.U256]()
}

func (c Coins) IsEmpty() bool { return len(c.byDenom) == 0 }

// Denoms returns the sorted list of denoms present.
func (c Coins) Denoms() []string {
	denoms := make([]string, 0, len(c.byDenom))
	for d := range c.byDenom {
		denoms = append(denoms, d)
	}
	sort.Strings(denoms)
	return denoms
}

// ToSlice returns the sorted []Coin view used for JSON/borsh serialization.
func (c Coins) ToSlice() []Coin {
	denoms := c.Denoms()
	out := make([]Coin, 0, len(denoms))
	for _, d := range denoms {
		out = append(out, Coin{Denom: d, Amount: c.byDenom[d]})
	}
	return out
}

func (c Coins) MarshalJSON() ([]byte, error) {
	return encoding.MarshalJSON(c.ToSlice())
}

func (c *Coins) UnmarshalJSON(data []byte) error {
	var slice []Coin
	if err := encoding.UnmarshalJSON(data, &slice); err != nil {
		return err
	}
	nc, err := CoinsFrom(slice...)
	if err != nil {
		return err
	}
	*c = nc
	return nil
}
