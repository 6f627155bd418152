package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/Simplici0/tierprice/internal/errors"
	"github.com/Simplici0/tierprice/internal/logger"
	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
	"github.com/Simplici0/tierprice/internal/store"
)

type successEnvelope struct {
	Data any `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

// writeError renders err as an error envelope. Errors that are not already
// application errors are classified first; only 5xx responses are logged.
func writeError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := classify(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if meta.HTTPStatus < http.StatusInternalServerError {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := errorEnvelope{Error: apiError{Code: string(typed.Code()), Message: msg}}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil && meta.HTTPStatus >= http.StatusInternalServerError {
		ctx = logg.WithField(ctx, "error_code", string(typed.Code()))
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

// classify maps engine, money and store errors onto application codes.
func classify(err error) *pkgerrors.Error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}

	var verrs pricing.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return pkgerrors.Wrap(pkgerrors.CodeUnprocessable, err, "tier set is invalid").
			WithDetails(map[string]any{"errors": []pricing.ValidationError(verrs)})
	case errors.Is(err, store.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
	case errors.Is(err, store.ErrConflict):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "variant already exists")
	case errors.Is(err, store.ErrDuplicateTier):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "tier ids must be unique within a variant")
	case errors.Is(err, money.ErrUnknownCurrency), errors.Is(err, money.ErrPrecision):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if code, ok := pricing.CodeOf(err); ok {
		return pkgerrors.Wrap(pkgerrors.CodeUnprocessable, err, engineMessage(err)).
			WithDetails(map[string]any{"code": code})
	}

	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
}

func engineMessage(err error) string {
	var typed *pricing.Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
