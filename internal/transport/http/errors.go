package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationError    = "validation_error"
	codeAccessWindowBlock  = "access_window_block"
	codeSpendLimit         = "spend_limit"
	codeItemNotFound       = "item_not_found"
	codeItemInactive       = "item_inactive"
	codeOutOfWindow        = "out_of_window"
	codeInsufficientStock  = "insufficient_stock"
	codeMissingIssue       = "missing_issue"
	codeUnknownAction      = "unknown_action"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Status: "error",
		Error:  errorBody{Code: code, Message: msg},
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"status":"error","error":{"code":"internal_error","message":"internal error"}}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successResponse{Status: "success", Data: data})
}

// writeDomainError maps engine errors onto the response taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidationError, err.Error())
	case errors.Is(err, domain.ErrAccessWindowBlocked):
		writeError(w, http.StatusConflict, codeAccessWindowBlock, err.Error())
	case errors.Is(err, domain.ErrSpendLimitExceeded):
		writeError(w, http.StatusConflict, codeSpendLimit, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrItemInactive):
		writeError(w, http.StatusConflict, codeItemInactive, err.Error())
	case errors.Is(err, domain.ErrItemOutOfWindow):
		writeError(w, http.StatusConflict, codeOutOfWindow, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrMissingIssue):
		writeError(w, http.StatusBadRequest, codeMissingIssue, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound), errors.Is(err, domain.ErrGuestNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, codeUnknownAction, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
