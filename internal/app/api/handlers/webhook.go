package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumostore/topup/internal/app/service/transaction"
	"github.com/lumostore/topup/internal/platform/digiflazz"
	"github.com/lumostore/topup/pkg/config"
	"github.com/lumostore/topup/pkg/response"
)

// ApiDigiflazzWebhook applies the provider's asynchronous final-status
// callback. The HMAC signature over the raw body is verified before any
// parsing; an unknown ref_id is acknowledged so the provider stops
// redelivering it.
func ApiDigiflazzWebhook(cfg *config.Config, log *zap.SugaredLogger, mgr transaction.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		signature := c.GetHeader("X-Hub-Signature")
		if !digiflazz.VerifyWebhookSignature(cfg.Digiflazz.WebhookSecret, body, signature) {
			log.Warnw("webhook signature rejected", "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid signature"))
			return
		}

		event, err := digiflazz.ParseCallback(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		if err := mgr.HandleCallback(c.Request.Context(), event); err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				log.Warnw("webhook for unknown ref ignored", "ref_id", event.RefID)
				c.JSON(http.StatusOK, response.OKT(gin.H{"status": "ignored"}))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"status": "ok"}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, cfg *config.Config, log *zap.SugaredLogger, mgr transaction.Manager) {
	r.POST("/webhook/digiflazz", ApiDigiflazzWebhook(cfg, log, mgr))
}
