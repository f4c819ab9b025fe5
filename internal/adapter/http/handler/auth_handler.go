package handler

import (
	"stepstyle/internal/adapter/http/dto"
	"stepstyle/internal/adapter/http/middleware"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"
	"stepstyle/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	authSvc    ports.AuthService
	accountSvc ports.AccountService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService, accountSvc ports.AccountService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, accountSvc: accountSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	markAudit(c, result.Account.ID)
	response.Created(c, newAuthResponse(result))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	markAudit(c, result.Account.ID)
	response.OK(c, newAuthResponse(result))
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(account))
}

// UpdateMe handles PUT /api/v1/auth/me.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	account, err := h.accountSvc.UpdateProfile(c.Request.Context(), ports.UpdateProfileRequest{
		AccountID: accountID,
		Name:      req.Name,
		Avatar:    req.Avatar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, accountID.String())
	response.OK(c, dto.NewAccountResponse(account))
}

func newAuthResponse(r *ports.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt.Unix(),
		Account:   dto.NewAccountResponse(r.Account),
	}
}

// callerID reads the account set by JWTAuth, answering 401 if it is missing.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// markAudit names the account on public routes, where JWTAuth has not run.
func markAudit(c *gin.Context, accountID uuid.UUID) {
	c.Set(middleware.CtxAuditAccountID, accountID)
	c.Set(middleware.CtxAuditResourceID, accountID.String())
}
