// Mint HTTP handlers.
//
// This file exposes the mint flow and its price quote:
//   - POST /mint               (signed-in owner mints to their own wallet)
//   - GET  /config/mint-price  (current price in ETH)
//
// In server mode the backend submits the transaction and returns its hash;
// in wallet mode it returns the unsigned call for the user's wallet.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/chain"
	"github.com/tbourn/farcasturd-backend/internal/services"
)

// MintRequest is the JSON payload for minting.
type MintRequest struct {
	// FID must be the signed-in user's Farcaster ID.
	FID int64 `json:"fid" binding:"required" example:"198116"`
	// To must be the signed-in wallet.
	To string `json:"to" binding:"required" example:"0x019061f6272b28e9d6baad2a1d65d0c16bd8c555"`
}

// Mint godoc
// @ID          mintFarcasturd
// @Summary     Mint the caller's Farcasturd
// @Description Mints the NFT for the signed-in FID to the signed-in wallet. One mint per FID, enforced on chain and by a pending-claim record.
// @Tags        Mint
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.MintRequest  true  "Mint payload"
//
// @Success     200  {object}  services.MintResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient payment"
// @Failure     403  {object}  handlers.ErrorResponse  "FID or recipient is not the caller's"
// @Failure     409  {object}  handlers.ErrorResponse  "Already minted"
// @Failure     502  {object}  handlers.ErrorResponse  "RPC failure"
// @Failure     503  {object}  handlers.ErrorResponse  "Minting not configured"
// @Router      /mint [post]
func (h *Handlers) Mint(c *gin.Context) {
	if h.svc.Mint == nil {
		unavailable(c, "minting")
		return
	}
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fid and to are required")
		return
	}
	sess, allowed := authorize(c, req.FID)
	if !allowed {
		return
	}

	res, err := h.svc.Mint.Mint(c.Request.Context(), services.MintRequest{
		FID:    req.FID,
		To:     req.To,
		Caller: sess.Address,
	})
	if err != nil {
		mintError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func mintError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAlreadyMinted):
		fail(c, http.StatusConflict, ErrCodeConflict, services.ErrAlreadyMinted.Error())
	case errors.Is(err, services.ErrInvalidFID), errors.Is(err, services.ErrInvalidAddress):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrRecipientMismatch):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, chain.ErrInsufficientPayment):
		fail(c, http.StatusPaymentRequired, ErrCodePaymentRequired, "insufficient payment")
	case errors.Is(err, services.ErrMintNotConfigured):
		failFinal(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, services.ErrMintNotConfigured.Error())
	case errors.Is(err, chain.ErrRPC):
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, "chain rpc failure")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "mint failed")
	}
}

// MintPrice godoc
// @ID          getMintPrice
// @Summary     Mint price
// @Description Current mint price in ETH, fixed by configuration or read from the contract.
// @Tags        Mint
// @Produce     json
//
// @Success     200  {object}  services.PriceQuote
// @Failure     502  {object}  handlers.ErrorResponse  "RPC failure"
// @Failure     503  {object}  handlers.ErrorResponse  "Price source not configured"
// @Router      /config/mint-price [get]
func (h *Handlers) MintPrice(c *gin.Context) {
	if h.svc.Price == nil {
		unavailable(c, "pricing")
		return
	}
	q, err := h.svc.Price.Quote(c.Request.Context())
	switch {
	case err == nil:
		ok(c, http.StatusOK, q)
	case errors.Is(err, services.ErrMintNotConfigured):
		failFinal(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, err.Error())
	default:
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, "could not read mint price")
	}
}
