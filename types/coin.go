package types

import (
	"fmt"
	"sort"
	"strings"
)

// Coin represents a single asset with denomination and amount
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

// NewCoin creates a new coin
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// IsValid checks if the coin is valid
func (c Coin) IsValid() bool {
	return c.Denom != "" && len(c.Denom) <= 64
}

// IsPositive returns true if the coin amount is positive
func (c Coin) IsPositive() bool {
	return c.Amount > 0
}

// String returns a string representation of the coin
func (c Coin) String() string {
	return fmt.Sprintf("%d%s", c.Amount, c.Denom)
}

// ValidateBasic returns an error for unusable coins
func (c Coin) ValidateBasic() error {
	if !c.IsValid() {
		return fmt.Errorf("%w: denom %q", ErrInvalidCoin, c.Denom)
	}
	return nil
}

// Coins is a collection of coins, one entry per denomination
type Coins []Coin

// NewCoins creates a Coins collection sorted by denomination
func NewCoins(coins ...Coin) Coins {
	result := make(Coins, len(coins))
	copy(result, coins)
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].Denom, result[j].Denom) < 0
	})
	return result
}

// IsValid checks each coin is valid and denominations are unique and sorted
func (coins Coins) IsValid() bool {
	var prev string
	for i, coin := range coins {
		if !coin.IsValid() {
			return false
		}
		if i > 0 && strings.Compare(coin.Denom, prev) <= 0 {
			return false
		}
		prev = coin.Denom
	}
	return true
}

// AmountOf returns the amount of a specific denomination
func (coins Coins) AmountOf(denom string) uint64 {
	for _, coin := range coins {
		if coin.Denom == denom {
			return coin.Amount
		}
	}
	return 0
}

// String renders the collection as a comma-separated list
func (coins Coins) String() string {
	parts := make([]string, len(coins))
	for i, coin := range coins {
		parts[i] = coin.String()
	}
	return strings.Join(parts, ",")
}
