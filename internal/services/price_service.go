package services

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/tbourn/farcasturd-backend/internal/chain"
)

// Price sources.
const (
	PriceSourceFixed = "fixed"
	PriceSourceChain = "chain"
)

// PriceReader reads mintPrice() from the contract.
type PriceReader interface {
	MintPrice(ctx context.Context) (*big.Int, error)
}

// PriceQuote is the public mint price.
type PriceQuote struct {
	Price  string `json:"price"`
	IsFree bool   `json:"isFree"`
}

// PriceService answers the current mint price, either from configuration or
// from the contract.
type PriceService struct {
	Source   string      // fixed|chain
	FixedETH string      // used when Source is fixed
	Chain    PriceReader // used when Source is chain
}

// PriceWei returns the mint price in wei.
func (s *PriceService) PriceWei(ctx context.Context) (*big.Int, error) {
	if s.Source == PriceSourceChain {
		if s.Chain == nil {
			return nil, ErrMintNotConfigured
		}
		return s.Chain.MintPrice(ctx)
	}
	eth := s.FixedETH
	if eth == "" {
		eth = "0"
	}
	return chain.ETHToWei(eth)
}

// Quote returns the price as an ETH string with the isFree flag.
func (s *PriceService) Quote(ctx context.Context) (PriceQuote, error) {
	wei, err := s.PriceWei(ctx)
	if err != nil {
		return PriceQuote{}, err
	}
	eth := chain.WeiToETH(wei)
	free := decimal.NewFromBigInt(wei, 0).IsZero()
	return PriceQuote{Price: eth, IsFree: free}, nil
}
