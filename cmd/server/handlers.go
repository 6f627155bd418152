package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/Simplici0/tierprice/internal/errors"
	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(r.Context(), s.log, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createVariantRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	current := *req.BasePrice
	if req.CurrentPrice != nil {
		current = *req.CurrentPrice
	}

	v := pricing.Variant{ID: strings.TrimSpace(req.ID), Tiers: toTiers(req.Tiers)}
	var err error
	if v.BasePrice, err = money.New(*req.BasePrice, currency); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}
	v.CurrentPrice = money.Money{Amount: current, Currency: v.BasePrice.Currency}
	v.Cost = money.Money{Amount: *req.Cost, Currency: v.BasePrice.Currency}

	if err := v.CheckPrices(); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}
	if !s.validTiers(w, r, v.Tiers) {
		return
	}

	created, err := s.store.CreateVariant(ctx, v)
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	s.log.Info(s.log.WithVariantID(ctx, created.ID), "variant.created")
	writeSuccess(w, http.StatusCreated, newVariantResponse(created))
}

func (s *server) handleGetVariant(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetVariant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), s.log, w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newVariantResponse(v))
}

func (s *server) handleResolvePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolvePriceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	v, err := s.store.GetVariant(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	quote, err := pricing.Calculate(v, *req.Quantity, s.marginThreshold)
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	s.metrics.ObserveResolution(quote.AppliedTier != nil, len(quote.Warnings) > 0)
	for _, warning := range quote.Warnings {
		s.log.Warn(s.log.WithFields(ctx, map[string]any{
			"variant_id":   v.ID,
			"quantity":     quote.Quantity,
			"warning_code": string(warning.Code),
			"tier_indices": warning.TierIndices,
		}), "pricing.tier_overlap")
	}

	writeSuccess(w, http.StatusOK, newResolvePriceResponse(quote))
}

func (s *server) handleValidateTiers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tiersRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}
	if _, err := s.store.GetVariant(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	ok, errs := pricing.ValidateTiers(toTiers(req.Tiers))
	for _, e := range errs {
		s.metrics.IncValidationError(string(e.Code))
	}
	if errs == nil {
		errs = []pricing.ValidationError{}
	}
	writeSuccess(w, http.StatusOK, validateTiersResponse{OK: ok, Errors: errs})
}

func (s *server) handleReplaceTiers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tiersRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	tiers := toTiers(req.Tiers)
	if !s.validTiers(w, r, tiers) {
		return
	}

	id := chi.URLParam(r, "id")
	v, err := s.store.ReplaceTiers(ctx, id, tiers)
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	s.log.Info(s.log.WithVariantID(ctx, id), "variant.tiers_replaced")
	writeSuccess(w, http.StatusOK, newVariantResponse(v))
}

// validTiers runs the tier validator and writes a 422 listing every broken
// rule when the set is rejected.
func (s *server) validTiers(w http.ResponseWriter, r *http.Request, tiers []pricing.Tier) bool {
	ok, errs := pricing.ValidateTiers(tiers)
	if ok {
		return true
	}
	for _, e := range errs {
		s.metrics.IncValidationError(string(e.Code))
	}
	writeError(r.Context(), s.log, w, pricing.ValidationErrors(errs))
	return false
}

func (s *server) handleMargin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	v, err := s.store.GetVariant(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	cost := v.Cost
	if raw := strings.TrimSpace(r.URL.Query().Get("cost")); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(ctx, s.log, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cost must be an integer amount of minor units").
				WithDetails(map[string]string{"cost": "is invalid"}))
			return
		}
		cost = money.Money{Amount: amount, Currency: v.CurrentPrice.Currency}
	}

	threshold := s.marginThreshold
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		if threshold, err = decimal.NewFromString(raw); err != nil {
			writeError(ctx, s.log, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "threshold must be a decimal percentage").
				WithDetails(map[string]string{"threshold": "is invalid"}))
			return
		}
	}

	margin, err := pricing.ComputeMargin(v.CurrentPrice, cost)
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	below := pricing.IsBelowThreshold(margin.Percent, threshold)
	if below {
		s.metrics.IncMarginAlert()
	}

	writeSuccess(w, http.StatusOK, marginResponse{
		Percent:        percentOneDP{margin.Percent},
		CostIsZero:     margin.CostIsZero,
		BelowThreshold: below,
		Threshold:      bareDecimal{threshold},
		Price:          v.CurrentPrice,
		Cost:           cost,
	})
}

func (s *server) handlePriceChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req priceChangeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	actor := req.Actor
	if verified, ok := actorFromContext(ctx); ok {
		actor = verified
	}

	id := chi.URLParam(r, "id")
	updated, record, err := s.store.ApplyPriceChange(ctx, id, func(cur pricing.Variant) (pricing.PriceChangeRecord, error) {
		currency := cur.CurrentPrice.Currency
		if req.Currency != "" {
			currency = strings.ToUpper(req.Currency)
		}
		newPrice := money.Money{Amount: *req.NewPrice, Currency: currency}
		return pricing.RecordPriceChange(cur.ID, cur.CurrentPrice, newPrice, req.Reason, actor, s.now())
	})
	if err != nil {
		writeError(ctx, s.log, w, err)
		return
	}

	s.metrics.IncPriceChange()
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"variant_id": id,
		"old_price":  record.OldPrice.Amount,
		"new_price":  record.NewPrice.Amount,
	}), "variant.price_changed")

	writeSuccess(w, http.StatusCreated, priceChangeResult{
		Record:  newPriceChangeResponse(record),
		Variant: newVariantResponse(updated),
	})
}

func (s *server) handleListPriceChanges(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListPriceChanges(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), s.log, w, err)
		return
	}

	out := make([]priceChangeResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, newPriceChangeResponse(rec))
	}
	writeSuccess(w, http.StatusOK, out)
}
