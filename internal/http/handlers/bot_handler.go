// Bot HTTP handlers.
//
// Mentions of the bot reach the backend two ways, both funneled into the
// same idempotent BotService.ProcessCast:
//   - POST /webhook/mentions      (Neynar push, HMAC verified by middleware)
//   - GET  /cron/check-mentions   (scheduled poll, bearer CRON_SECRET)
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/services"
)

// castCreated is the only webhook event type the bot acts on.
const castCreated = "cast.created"

// WebhookEvent is the Neynar webhook envelope.
type WebhookEvent struct {
	Type string          `json:"type" example:"cast.created"`
	Data json.RawMessage `json:"data" swaggertype:"object"`
}

// WebhookResponse reports how a delivery was handled.
type WebhookResponse struct {
	Status string `json:"status" example:"success"`
}

// MentionsWebhook godoc
// @ID          mentionsWebhook
// @Summary     Neynar mentions webhook
// @Description Processes one cast that mentions the bot. Redeliveries of the same cast are answered with already_processed.
// @Tags        Bot
// @Accept      json
// @Produce     json
//
// @Param       X-Neynar-Signature  header  string                 true  "Hex HMAC-SHA512 of the body"
// @Param       body                body    handlers.WebhookEvent  true  "Webhook event"
//
// @Success     200  {object}  handlers.WebhookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed event"
// @Failure     401  {object}  handlers.ErrorResponse  "Bad signature"
// @Failure     500  {object}  handlers.ErrorResponse  "Processing failed, redeliver"
// @Router      /webhook/mentions [post]
func (h *Handlers) MentionsWebhook(c *gin.Context) {
	if h.svc.Bot == nil {
		unavailable(c, "bot")
		return
	}
	var ev WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil || len(ev.Data) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid webhook body")
		return
	}
	if ev.Type != "" && ev.Type != castCreated {
		ok(c, http.StatusOK, WebhookResponse{Status: services.BotIgnored})
		return
	}

	cast, err := farcaster.DecodeCast(ev.Data)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid cast payload")
		return
	}

	out, err := h.svc.Bot.ProcessCast(c.Request.Context(), cast)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to process cast")
		return
	}
	ok(c, http.StatusOK, WebhookResponse{Status: out.Status})
}

// CheckMentions godoc
// @ID          checkMentions
// @Summary     Poll bot mentions
// @Description Fetches the latest mentions of the bot and processes each one. Intended for a scheduler.
// @Tags        Bot
// @Produce     json
// @Security    CronSecret
//
// @Success     200  {object}  services.PollSummary
// @Failure     401  {object}  handlers.ErrorResponse  "Bad cron secret"
// @Failure     502  {object}  handlers.ErrorResponse  "Mentions fetch failed"
// @Router      /cron/check-mentions [get]
func (h *Handlers) CheckMentions(c *gin.Context) {
	if h.svc.Bot == nil {
		unavailable(c, "bot")
		return
	}
	sum, err := h.svc.Bot.PollMentions(c.Request.Context())
	switch {
	case err == nil:
		ok(c, http.StatusOK, sum)
	case errors.Is(err, farcaster.ErrNotConfigured):
		failFinal(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "farcaster client is not configured")
	default:
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, "failed to fetch mentions")
	}
}
