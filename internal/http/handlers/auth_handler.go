// Sign-in HTTP handlers.
//
// The mini app proves FID ownership with a sign-in-with-Ethereum message
// signed by one of the FID's custody or verified wallets:
//   - POST /auth/nonce   (single-use nonce to embed in the message)
//   - POST /auth/verify  (exchange message + signature for a bearer token)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/auth"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/services"
)

// NonceResponse carries a fresh sign-in nonce.
type NonceResponse struct {
	Nonce string `json:"nonce" example:"9f86d081884c7d659a2feaa0c55ad015"`
}

// VerifyRequest is the JSON payload for sign-in verification.
type VerifyRequest struct {
	// Message is the full EIP-4361 message text that was signed.
	Message string `json:"message"`
	// Signature is the 65-byte personal_sign signature, hex encoded.
	Signature string `json:"signature" example:"0x..."`
	// Nonce is the value previously returned by /auth/nonce.
	Nonce string `json:"nonce"`
}

// Nonce godoc
// @ID          authNonce
// @Summary     Sign-in nonce
// @Description Issues a random nonce to embed in the sign-in message. Each nonce signs in once and expires after AUTH_NONCE_TTL.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  handlers.NonceResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Nonce could not be issued"
// @Router      /auth/nonce [post]
func (h *Handlers) Nonce(c *gin.Context) {
	if h.svc.Auth == nil {
		unavailable(c, "sign-in")
		return
	}
	n, err := h.svc.Auth.Nonce(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create nonce")
		return
	}
	ok(c, http.StatusOK, NonceResponse{Nonce: n})
}

// Verify godoc
// @ID          authVerify
// @Summary     Verify sign-in
// @Description Verifies a signed sign-in message for a FID and returns a bearer token. The signer must be a custody or verified address of the FID.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.VerifyRequest  true  "Signed message"
//
// @Success     200  {object}  services.SignIn
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed, expired, replayed or wrong-domain message"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid signature"
// @Failure     403  {object}  handlers.ErrorResponse  "Address not linked to the FID"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown FID"
// @Failure     502  {object}  handlers.ErrorResponse  "Profile lookup failed"
// @Router      /auth/verify [post]
func (h *Handlers) Verify(c *gin.Context) {
	if h.svc.Auth == nil {
		unavailable(c, "sign-in")
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.Signature) == "" || strings.TrimSpace(req.Nonce) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing required fields: message, signature, nonce")
		return
	}

	res, err := h.svc.Auth.Verify(c.Request.Context(), services.VerifyRequest{
		Message:   req.Message,
		Signature: req.Signature,
		Nonce:     req.Nonce,
	})
	switch {
	case err == nil:
		ok(c, http.StatusOK, res)
	case errors.Is(err, services.ErrNonceUsed):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Nonce already used")
	case errors.Is(err, auth.ErrBadSignature):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid signature")
	case errors.Is(err, services.ErrAddressNotOwned):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case services.IsAuthInputError(err):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, farcaster.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Farcaster profile not found")
	case errors.Is(err, services.ErrProfileLookup):
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, "Failed to verify Farcaster identity")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "sign-in failed")
	}
}
