package chain

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Contract and client failures. Each is distinguishable with errors.Is so
// callers can render a specific message.
var (
	ErrNotConfigured       = errors.New("chain: contract address, rpc url or minter key not configured")
	ErrAlreadyMinted       = errors.New("chain: farcasturd already minted for this fid")
	ErrInsufficientPayment = errors.New("chain: insufficient payment")
	ErrInvalidFID          = errors.New("chain: invalid fid")
	ErrInvalidPrice        = errors.New("chain: invalid price")
	ErrTransferFailed      = errors.New("chain: transfer failed")
	ErrNonTransferable     = errors.New("chain: token is non-transferable")
	ErrInvalidAddress      = errors.New("chain: invalid recipient address")
	ErrRPC                 = errors.New("chain: rpc failure")
)

// revertErrors maps ABI custom-error names to sentinels.
var revertErrors = map[string]error{
	"AlreadyMinted":       ErrAlreadyMinted,
	"InsufficientPayment": ErrInsufficientPayment,
	"InvalidFID":          ErrInvalidFID,
	"InvalidPrice":        ErrInvalidPrice,
	"TransferFailed":      ErrTransferFailed,
	"NonTransferable":     ErrNonTransferable,
}

// decodeError converts an RPC failure into one of the sentinels above.
// Custom-error reverts are matched by their 4-byte selector; nodes that only
// return a message are matched by error name.
func (c *Client) decodeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil && len(data) >= 4 {
				for name, e := range c.abi.Errors {
					if bytes.Equal(e.ID[:4], data[:4]) {
						if sentinel, ok := revertErrors[name]; ok {
							return fmt.Errorf("%s: %w", op, sentinel)
						}
					}
				}
			}
		}
	}
	msg := err.Error()
	for name, sentinel := range revertErrors {
		if strings.Contains(msg, name) {
			return fmt.Errorf("%s: %w", op, sentinel)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, ErrRPC, err)
}
