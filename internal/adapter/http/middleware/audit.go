package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers on public routes set these so the audit entry can name the
// account and resource that the request created.
const (
	CtxAuditAccountID  = "audit_account_id"
	CtxAuditResourceID = "audit_resource_id"
)

// AuditLog creates an audit middleware that records successful write operations.
// Routes are matched by their registered pattern, so /orders/:id style paths work.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var accountID *uuid.UUID
		if id, ok := AccountID(c); ok {
			accountID = &id
		}
		if id, ok := c.Get(CtxAuditAccountID); ok && accountID == nil {
			if v, ok := id.(uuid.UUID); ok {
				accountID = &v
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(response.RequestIDKey),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AccountID:    accountID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxAuditResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/auth/register" && method == http.MethodPost:
		return domain.AuditActionRegister, "account"
	case route == "/api/v1/auth/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "session"
	case route == "/api/v1/auth/me" && method == http.MethodPut:
		return domain.AuditActionUpdateProfile, "account"
	case route == "/api/v1/wallet/earn" && method == http.MethodPost:
		return domain.AuditActionEarnCoins, "wallet"
	case route == "/api/v1/orders" && method == http.MethodPost:
		return domain.AuditActionCheckout, "order"
	}
	return "", ""
}
