package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hyre/internal/service"
)

// WebhookHandler handles inbound payment provider events.
type WebhookHandler struct {
	reconciliation *service.ReconciliationService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconciliation *service.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{reconciliation: reconciliation}
}

// chargeCompletedPayload is the provider's webhook body. Only the reference
// fields are read; amounts are re-verified server-side.
type chargeCompletedPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID     string  `json:"id"`
		TxRef  string  `json:"tx_ref"`
		Amount float64 `json:"amount"`
		Status string  `json:"status"`
	} `json:"data"`
}

// HandleChargeCompleted handles POST /v1/webhooks/payments.
// Anomalies are acknowledged with 200: the provider retrying an ambiguous
// or unrecognized reference cannot change the outcome. Only transient
// infrastructure failures return 5xx to request redelivery.
func (h *WebhookHandler) HandleChargeCompleted(c *gin.Context) {
	var payload chargeCompletedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid webhook payload"})
		return
	}

	if payload.Data.TxRef == "" || payload.Data.ID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing tx_ref or charge id"})
		return
	}

	err := h.reconciliation.HandleChargeCompleted(c.Request.Context(), service.ChargeCompletedEvent{
		TxRef:            payload.Data.TxRef,
		ProviderChargeID: payload.Data.ID,
		Amount:           payload.Data.Amount,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "temporary failure, retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
