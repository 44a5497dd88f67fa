package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobalance/impact-balance/internal/factors"
	"github.com/ecobalance/impact-balance/internal/models"
	"github.com/ecobalance/impact-balance/internal/quotation"
)

type stubQuoteSource struct{}

func (stubQuoteSource) Latest(ctx context.Context) (*models.Quotation, error) {
	return nil, nil
}

func newSettingsTestHandler(store *stubSettingsStore) (*SettingsHandler, *factors.Service) {
	svc := factors.NewService(store)
	qsvc := quotation.NewService(stubQuoteSource{}, time.Minute)
	return NewSettingsHandler(svc, qsvc), svc
}

func TestHandlePutFactors_PartialEditKeepsOtherFactors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &stubSettingsStore{}
	h, svc := newSettingsTestHandler(store)

	r := gin.New()
	r.PUT("/settings/factors", h.HandlePutFactors)

	body := `{"per_capita":{"daily_ucs_consumption":0.07}}`
	req := httptest.NewRequest("PUT", "/settings/factors", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	loaded := svc.Load(context.Background())
	assert.Equal(t, 0.07, loaded.PerCapita.DailyUcsConsumption)
	// Fields absent from the body keep their current values.
	assert.Equal(t, 50194.0, loaded.Equivalences.GdpPerCapita)
	assert.Equal(t, 150.0, loaded.IndirectCosts.CertificateIssuanceFee)
	assert.Equal(t, 1200.0, loaded.Benefits.WaterFlowLitersPerUCS)
}

func TestHandlePutFactors_EditsAccumulate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &stubSettingsStore{}
	h, svc := newSettingsTestHandler(store)

	r := gin.New()
	r.PUT("/settings/factors", h.HandlePutFactors)

	put := func(body string) {
		req := httptest.NewRequest("PUT", "/settings/factors", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)
	}

	put(`{"per_capita":{"daily_ucs_consumption":0.07}}`)
	put(`{"indirect_costs":{"website_page_fee":300}}`)

	loaded := svc.Load(context.Background())
	assert.Equal(t, 0.07, loaded.PerCapita.DailyUcsConsumption, "first edit survives the second")
	assert.Equal(t, 300.0, loaded.IndirectCosts.WebsitePageFee)
}
