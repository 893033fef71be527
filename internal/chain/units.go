package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const weiDecimals = 18

// ETHToWei parses a decimal ETH amount ("0.001") into wei. Negative amounts
// and sub-wei precision are rejected.
func ETHToWei(eth string) (*big.Int, error) {
	eth = strings.TrimSpace(eth)
	if eth == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(eth)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrice, eth)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidPrice, eth)
	}
	wei := d.Shift(weiDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimals in %q", ErrInvalidPrice, weiDecimals, eth)
	}
	return wei.BigInt(), nil
}

// WeiToETH formats wei as a decimal ETH string without trailing zeros.
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}
