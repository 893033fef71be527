// Artifact HTTP handlers.
//
// This file exposes the generation pipeline and the two read routes that
// marketplaces and the NFT contract's tokenURI point at:
//   - POST /generate        (generate once per FID, signed-in owner only)
//   - GET  /metadata/{fid}  (ERC-721 metadata, placeholder until generated)
//   - GET  /image/{fid}     (raw image bytes, immutable)
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/imagegen"
	"github.com/tbourn/farcasturd-backend/internal/services"
	"github.com/tbourn/farcasturd-backend/internal/utils"
)

// Cache policies for the artifact routes.
const (
	cacheImmutable   = "public, max-age=31536000, immutable"
	cacheMetadata    = "public, max-age=3600, s-maxage=3600, stale-while-revalidate=86400"
	cacheNever       = "no-cache, no-store, must-revalidate"
	placeholderImage = "/placeholder.png"
)

//
// DTOs
//

// GenerateRequest is the JSON payload for generating an artifact.
type GenerateRequest struct {
	// FID must be the signed-in user's Farcaster ID.
	FID int64 `json:"fid" binding:"required" example:"198116"`
}

// GenerateResponse is returned after a successful (or cached) generation.
type GenerateResponse struct {
	Success  bool   `json:"success" example:"true"`
	FID      int64  `json:"fid" example:"198116"`
	ImageURL string `json:"imageUrl" example:"https://farcasturd.xyz/api/image/198116"`
	Prompt   string `json:"prompt"`
}

// Attribute is one ERC-721 metadata trait. Value is a number or a string.
type Attribute struct {
	TraitType string `json:"trait_type" example:"FID"`
	Value     any    `json:"value" swaggertype:"string" example:"198116"`
}

// Metadata is the ERC-721 token metadata document.
type Metadata struct {
	Name        string      `json:"name" example:"Farcasturd #198116"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url"`
	Attributes  []Attribute `json:"attributes"`
}

// fidParam parses the :fid path parameter, writing 400 on failure.
func fidParam(c *gin.Context) (int64, bool) {
	fid, valid := utils.ParseFID(c.Param("fid"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fid must be a positive integer")
		return 0, false
	}
	return fid, true
}

//
// Handlers
//

// Generate godoc
// @ID          generateFarcasturd
// @Summary     Generate the caller's Farcasturd
// @Description Generates the artifact for the signed-in FID, or returns the stored one. Generation happens at most once per FID.
// @Tags        Artifacts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.GenerateRequest  true  "Generate payload"
//
// @Success     200  {object}  handlers.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid fid"
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     403  {object}  handlers.ErrorResponse  "FID is not the caller's"
// @Failure     500  {object}  handlers.ErrorResponse  "Generation failed (see code and retryable)"
// @Failure     502  {object}  handlers.ErrorResponse  "Profile lookup failed"
// @Router      /generate [post]
func (h *Handlers) Generate(c *gin.Context) {
	if h.svc.Artifacts == nil {
		unavailable(c, "generation")
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fid must be a positive integer")
		return
	}
	if _, allowed := authorize(c, req.FID); !allowed {
		return
	}

	a, err := h.svc.Artifacts.EnsureArtifact(c.Request.Context(), req.FID)
	if err != nil {
		generationError(c, err)
		return
	}
	ok(c, http.StatusOK, GenerateResponse{
		Success:  true,
		FID:      a.FID,
		ImageURL: h.imageURL(a.FID),
		Prompt:   a.Prompt,
	})
}

// generationError maps a generation failure onto the envelope. Quota and
// credential failures are not retryable.
func generationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidFID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, farcaster.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Farcaster user not found")
		return
	case errors.Is(err, services.ErrProfileLookup):
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, "farcaster profile lookup failed")
		return
	}

	var ge *imagegen.Error
	if !errors.As(err, &ge) {
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "generation failed, try again later")
		return
	}
	switch ge.Class {
	case imagegen.ClassQuota:
		failFinal(c, http.StatusInternalServerError, ErrCodeGenerationQuota, "image generation quota exhausted")
	case imagegen.ClassCredentials:
		failFinal(c, http.StatusInternalServerError, ErrCodeGenerationCredentials, "image generation is misconfigured")
	case imagegen.ClassRejected:
		failFinal(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "image request was rejected")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "generation failed, try again later")
	}
}

// Metadata godoc
// @ID          getMetadata
// @Summary     Token metadata
// @Description ERC-721 metadata for a FID. Before generation a non-cacheable placeholder is returned; afterwards the document is cacheable for an hour.
// @Tags        Artifacts
// @Produce     json
//
// @Param       fid  path  int  true  "Farcaster ID"  example(198116)
//
// @Success     200  {object}  handlers.Metadata
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid fid"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /metadata/{fid} [get]
func (h *Handlers) Metadata(c *gin.Context) {
	fid, valid := fidParam(c)
	if !valid {
		return
	}
	if h.svc.Artifacts == nil {
		unavailable(c, "artifact storage")
		return
	}

	exists, err := h.svc.Artifacts.HasArtifact(c.Request.Context(), fid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not read artifact")
		return
	}

	name := "Farcasturd #" + strconv.FormatInt(fid, 10)
	if !exists {
		okCached(c, cacheNever, Metadata{
			Name:        name,
			Description: "Generate your unique Farcasturd! Unique poop tied to your Farcaster.",
			Image:       h.baseURL + placeholderImage,
			ExternalURL: h.profileURL(fid),
			Attributes: []Attribute{
				{TraitType: "FID", Value: fid},
				{TraitType: "Status", Value: "Not Generated"},
			},
		})
		return
	}

	okCached(c, cacheMetadata, Metadata{
		Name:        name,
		Description: "Your 1:1 Farcasturd. A unique turd tied to your Farcaster account.",
		Image:       h.imageURL(fid),
		ExternalURL: h.profileURL(fid),
		Attributes: []Attribute{
			{TraitType: "FID", Value: fid},
			{TraitType: "Genesis", Value: "Phase 1"},
		},
	})
}

// Image godoc
// @ID          getImage
// @Summary     Artifact image
// @Description Raw image bytes for a generated FID. Responses are immutable.
// @Tags        Artifacts
// @Produce     png
//
// @Param       fid  path  int  true  "Farcaster ID"  example(198116)
//
// @Success     200  {file}    binary
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid fid"
// @Failure     404  {object}  handlers.ErrorResponse  "Not generated"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /image/{fid} [get]
func (h *Handlers) Image(c *gin.Context) {
	fid, valid := fidParam(c)
	if !valid {
		return
	}
	if h.svc.Artifacts == nil {
		unavailable(c, "artifact storage")
		return
	}

	a, err := h.svc.Artifacts.GetArtifact(c.Request.Context(), fid)
	if errors.Is(err, services.ErrArtifactNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "farcasturd not generated")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not read artifact")
		return
	}

	mime := a.MimeType
	if mime == "" {
		mime = "image/png"
	}
	c.Header("Cache-Control", cacheImmutable)
	c.Data(http.StatusOK, mime, a.Image)
}
