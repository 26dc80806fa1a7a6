// Package httpapi serves the server's HTTP surface with Gin: the SMS
// gateway webhook, Prometheus metrics and a liveness probe.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HeaderWebhookToken carries the shared secret of the SMS gateway.
const HeaderWebhookToken = "X-Webhook-Token"

type smsIngester interface {
	Ingest(ctx context.Context, from, body string) (*services.IngestResult, error)
}

// inboundSMS is the payload the gateway posts for every received message.
type inboundSMS struct {
	From string `json:"from"`
	Body string `json:"body" binding:"required"`
}

// NewRouter builds the Gin engine. Requests to /sms/inbound must carry
// webhookToken in HeaderWebhookToken.
func NewRouter(sms smsIngester, webhookToken string, gatherer prometheus.Gatherer, l logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.POST("/sms/inbound", requireToken(webhookToken), func(c *gin.Context) {
		var in inboundSMS
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
			return
		}

		res, err := sms.Ingest(c.Request.Context(), in.From, in.Body)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": res.Status, "passage_id": res.Passage.ID})
		case errors.Is(err, common.ErrInvalidPassage):
			// the gateway must not redeliver a payload that will never decode
			c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "rejected", "error": err.Error()})
		default:
			l.Error(c.Request.Context(), "sms ingest failed", "from", in.From, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	})

	return r
}

func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderWebhookToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
