package handlers

import (
	"errors"
	"net/http"

	"taskHub/internal/logger"
	"taskHub/internal/service"

	"go.uber.org/zap"
)

const (
	codeBadRequest   = "BAD_REQUEST"
	codeUnauthorized = "UNAUTHORIZED"
	codeUnsupported  = "UNSUPPORTED_MEDIA_TYPE"
	codeInternal     = "INTERNAL_ERROR"
)

// handleServiceError отвечает клиенту по коду бизнес-ошибки, прочее уходит как 500
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		if statusCode >= http.StatusInternalServerError {
			logger.Error("HTTP: Ошибка Service", err,
				zap.String("operation", operation),
				zap.String("error_code", businessErr.Code),
				zap.String("client_ip", r.RemoteAddr))
		} else {
			logger.Warn("HTTP: Бизнес-ошибка",
				zap.String("operation", operation),
				zap.String("error_code", businessErr.Code),
				zap.Int("http_status", statusCode))
		}

		responseWithFields(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, codeInternal, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict:
		return http.StatusConflict
	case service.CodeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
