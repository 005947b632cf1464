package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/service"
	"github.com/rs/zerolog"
)

// Handler handles API requests
type Handler struct {
	service service.Service
	log     zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(service service.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// SetupRoutes sets up the API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api")

	// Public verification endpoints
	api.GET("/contracts/:id/verify", h.VerifyContract)
	api.GET("/contracts/:id/signatures/:role/verify", h.VerifySignature)

	// Authenticated routes
	auth := api.Group("")
	auth.Use(AuthMiddleware())
	{
		// Contract routes
		auth.POST("/contracts", h.CreateContract)
		auth.GET("/contracts", h.ListContracts)
		auth.GET("/contracts/:id", h.GetContract)
		auth.PATCH("/contracts/:id", h.UpdateTerms)
		auth.DELETE("/contracts/:id", h.DeleteContract)

		// Lifecycle routes
		auth.POST("/contracts/:id/approve", h.ApproveContract)
		auth.POST("/contracts/:id/reject", h.RejectContract)
		auth.POST("/contracts/:id/sign", h.SignContract)
		auth.POST("/contracts/:id/verification-code", h.IssueVerificationCode)
		auth.POST("/contracts/:id/reminders", h.SendSignatureReminder)
		auth.PUT("/contracts/:id/documents/:type", h.AttachDocument)

		// Stored signature routes
		auth.PUT("/signatures/me", h.StoreSignature)
		auth.GET("/signatures/me", h.GetStoredSignature)
	}
}

// actor builds the acting identity from the authenticated request
func actor(c *gin.Context) models.Actor {
	return models.Actor{
		UserID:    c.GetString("userId"),
		IPAddress: c.ClientIP(),
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

// respondError maps lifecycle errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	var serr *service.Error
	if !errors.As(err, &serr) {
		h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		})
		return
	}

	status := http.StatusInternalServerError
	switch serr.Kind {
	case service.KindValidation, service.KindInvalidInput:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindConflict:
		status = http.StatusConflict
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    serr.Code,
		Message: serr.Message,
		Fields:  serr.Fields,
	})
}

func contractResponse(c *gin.Context, status int, contract *models.Contract) {
	c.JSON(status, models.ContractResponse{
		Status:   "success",
		Contract: models.NewContractView(contract, c.GetString("userId")),
	})
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateContract handles contract creation
func (h *Handler) CreateContract(c *gin.Context) {
	var req models.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	contract, err := h.service.CreateContract(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusCreated, contract)
}

// ListContracts handles listing the caller's contracts
func (h *Handler) ListContracts(c *gin.Context) {
	contracts, err := h.service.ListContracts(c.Request.Context(), actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]models.ContractView, 0, len(contracts))
	for _, contract := range contracts {
		views = append(views, models.NewContractView(contract, c.GetString("userId")))
	}

	c.JSON(http.StatusOK, models.ContractListResponse{
		Status:    "success",
		Contracts: views,
	})
}

// GetContract handles reading one contract
func (h *Handler) GetContract(c *gin.Context) {
	contract, err := h.service.GetContract(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusOK, contract)
}

// UpdateTerms handles partial term updates
func (h *Handler) UpdateTerms(c *gin.Context) {
	var req models.UpdateTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	contract, err := h.service.UpdateTerms(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusOK, contract)
}

// DeleteContract handles contract deletion
func (h *Handler) DeleteContract(c *gin.Context) {
	if err := h.service.DeleteContract(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Contract deleted successfully",
	})
}

// decision reads an optional feedback body
func decision(c *gin.Context) (models.DecisionRequest, bool) {
	var req models.DecisionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, false
	}
	return req, true
}

// ApproveContract handles a party's approval
func (h *Handler) ApproveContract(c *gin.Context) {
	req, ok := decision(c)
	if !ok {
		return
	}

	contract, err := h.service.Approve(c.Request.Context(), actor(c), c.Param("id"), req.Feedback)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusOK, contract)
}

// RejectContract handles a party's rejection
func (h *Handler) RejectContract(c *gin.Context) {
	req, ok := decision(c)
	if !ok {
		return
	}

	contract, err := h.service.Reject(c.Request.Context(), actor(c), c.Param("id"), req.Feedback)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusOK, contract)
}

// SignContract handles signing in the caller's role
func (h *Handler) SignContract(c *gin.Context) {
	var req models.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	contract, err := h.service.Sign(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusOK, contract)
}

// IssueVerificationCode handles issuing a signing code to the caller
func (h *Handler) IssueVerificationCode(c *gin.Context) {
	resp, err := h.service.IssueVerificationCode(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// SendSignatureReminder handles reminding a party to sign
func (h *Handler) SendSignatureReminder(c *gin.Context) {
	var req models.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.SendSignatureReminder(c.Request.Context(), actor(c), c.Param("id"), req.RecipientRole)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AttachDocument handles recording a supporting document reference
func (h *Handler) AttachDocument(c *gin.Context) {
	var req models.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	contract, err := h.service.AttachDocument(c.Request.Context(), actor(c), c.Param("id"), c.Param("type"), req.Reference)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contractResponse(c, http.StatusOK, contract)
}

// VerifyContract handles public fingerprint verification
func (h *Handler) VerifyContract(c *gin.Context) {
	hash := c.Query("hash")
	if hash == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: "hash query parameter is required",
		})
		return
	}

	result, err := h.service.Verify(c.Request.Context(), c.Param("id"), hash)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifySignature handles public signature code verification
func (h *Handler) VerifySignature(c *gin.Context) {
	result, err := h.service.VerifySignature(c.Request.Context(), c.Param("id"), c.Param("role"), c.Query("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StoreSignature handles saving the caller's reusable signature
func (h *Handler) StoreSignature(c *gin.Context) {
	var req models.StoreSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.StoreSignature(c.Request.Context(), actor(c), req.SignatureImage); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetStoredSignature handles reading the caller's reusable signature
func (h *Handler) GetStoredSignature(c *gin.Context) {
	image, err := h.service.GetStoredSignature(c.Request.Context(), actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"signatureImage": image,
	})
}
