package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeSMS struct {
	from, body string
	res        *services.IngestResult
	err        error
}

func (f *fakeSMS) Ingest(ctx context.Context, from, body string) (*services.IngestResult, error) {
	f.from, f.body = from, body
	return f.res, f.err
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(HeaderWebhookToken, token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestInbound_Accepted(t *testing.T) {
	sms := &fakeSMS{res: &services.IngestResult{Status: services.IngestCreated, Passage: &models.Passage{ID: 12}}}
	r := NewRouter(sms, "tok", prometheus.NewRegistry(), logging.Nop{})

	w := do(t, r, http.MethodPost, "/sms/inbound", "tok", `{"from":"+919845001234","body":"V1|NTH|KA01AB1234|CAR|1773482400|1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"created","passage_id":12}`, w.Body.String())
	assert.Equal(t, "+919845001234", sms.from)
	assert.Equal(t, "V1|NTH|KA01AB1234|CAR|1773482400|1234", sms.body)
}

func TestInbound_Errors(t *testing.T) {
	tests := []struct {
		name  string
		token string
		body  string
		err   error
		want  int
	}{
		{"missing token", "", `{"body":"x"}`, nil, http.StatusUnauthorized},
		{"wrong token", "nope", `{"body":"x"}`, nil, http.StatusUnauthorized},
		{"empty body", "tok", `{"from":"x"}`, nil, http.StatusBadRequest},
		{"bad json", "tok", `{`, nil, http.StatusBadRequest},
		{"undecodable", "tok", `{"body":"hello"}`, common.ErrInvalidPassage, http.StatusUnprocessableEntity},
		{"store failure", "tok", `{"body":"x"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeSMS{err: tt.err}, "tok", prometheus.NewRegistry(), logging.Nop{})
			w := do(t, r, http.MethodPost, "/sms/inbound", tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), "db down")
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Passages.WithLabelValues("created").Inc()

	r := NewRouter(&fakeSMS{}, "tok", reg, logging.Nop{})

	w := do(t, r, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `checkpost_passages_ingested_total{status="created"} 1`)
}

func TestServer_StopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", http.NotFoundHandler(), logging.Nop{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
