package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"identity-sync-backend/internal/delivery/http/middleware"
	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/logger"
	"identity-sync-backend/pkg/security"
	"identity-sync-backend/pkg/webhook"

	"github.com/gin-gonic/gin"
)

// WebhookPath is the provider's user webhook endpoint. It is listed in the
// route gate's public allow-list.
const WebhookPath = "/api/webhooks/clerk/user"

// maxWebhookBody bounds the payload read before signature verification.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	userSyncUC  domain.UserSyncUsecase
	securityLog *security.SecurityLogger
}

func NewWebhookHandler(r gin.IRoutes, userSyncUC domain.UserSyncUsecase, securityLog *security.SecurityLogger) {
	handler := &WebhookHandler{
		userSyncUC:  userSyncUC,
		securityLog: securityLog,
	}

	r.GET(WebhookPath, handler.HandleUserEvent)
	r.POST(WebhookPath, handler.HandleUserEvent)
	r.PUT(WebhookPath, handler.HandleUserEvent)
}

// HandleUserEvent godoc
// @Summary      Identity provider user webhook
// @Description  Verifies a svix-signed user.created / user.updated delivery and mirrors the user into the local store. Other event types are acknowledged without changes.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        svix-id         header  string  true  "Delivery id"
// @Param        svix-timestamp  header  string  true  "Unix timestamp of the delivery"
// @Param        svix-signature  header  string  true  "Signature list"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      429  {object}  response.Response
// @Router       /api/webhooks/clerk/user [post]
func (h *WebhookHandler) HandleUserEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Log.Warn("Failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{})
		return
	}

	ctx := c.Request.Context()
	outcome, err := h.userSyncUC.HandleEvent(ctx, payload, c.Request.Header)
	if err != nil {
		meta := middleware.RequestMeta(c)
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			h.securityLog.LogWebhookSignatureInvalid(ctx, meta, c.GetHeader(webhook.HeaderID), err.Error())
		case errors.Is(err, domain.ErrMalformedEvent), errors.Is(err, domain.ErrPrimaryEmailMissing):
			h.securityLog.LogWebhookRejected(ctx, meta, eventType(payload), err.Error())
		default:
			logger.Log.Error("Webhook processing failed", "request_id", meta.RequestID, "error", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{})
		return
	}

	logger.Log.Info("Webhook processed", "outcome", outcome)
	c.JSON(http.StatusOK, gin.H{})
}

// eventType peeks at the event type for logging; it is empty when the payload
// is not JSON.
func eventType(payload []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(payload, &probe)
	return probe.Type
}
