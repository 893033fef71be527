package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/services"
	"github.com/tbourn/farcasturd-backend/internal/utils"
)

// HeaderFID lets Farcaster clients pass the viewer's FID without a query.
const HeaderFID = "X-FC-FID"

// Me godoc
// @ID          getMe
// @Summary     Current user
// @Description Profile summary and on-chain mint flag for a FID. hasMinted reads false when the chain is unreachable.
// @Tags        Profile
// @Produce     json
//
// @Param       fid      query   int  false  "Farcaster ID"  example(198116)
// @Param       X-FC-FID header  int  false  "Farcaster ID, used when the query is absent"
//
// @Success     200  {object}  services.Me
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or invalid fid"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown fid"
// @Failure     502  {object}  handlers.ErrorResponse  "Profile lookup failed"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("fid"))
	if raw == "" {
		raw = c.GetHeader(HeaderFID)
	}
	fid, valid := utils.ParseFID(raw)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fid must be a positive integer")
		return
	}
	if h.svc.Profiles == nil {
		unavailable(c, "profile lookup")
		return
	}

	me, err := h.svc.Profiles.Me(c.Request.Context(), fid)
	switch {
	case err == nil:
		ok(c, http.StatusOK, me)
	case errors.Is(err, services.ErrInvalidFID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, farcaster.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "farcaster user not found")
	default:
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, "farcaster profile lookup failed")
	}
}
