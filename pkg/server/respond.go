package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"boardhost/pkg/session"
)

// writeJSON encodes payload as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode response body")
	}
}

// writeSuccess writes the `{success: true, ...}` envelope spec §6.1 requires.
// extra's keys are merged alongside "success" at the top level.
func writeSuccess(w http.ResponseWriter, status int, extra map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError maps a session.Error (or any other error) to the HTTP status
// and error envelope spec §7 defines.
func writeError(w http.ResponseWriter, err error) {
	code := session.CodeOf(err)
	status := httpStatusForCode(code)
	writeJSON(w, status, map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"errorCode": string(code),
	})
}

func httpStatusForCode(code session.ErrorCode) int {
	switch code {
	case session.ErrCodeNotFound:
		return http.StatusNotFound
	case session.ErrCodeConflict:
		return http.StatusConflict
	case session.ErrCodeForbidden:
		return http.StatusForbidden
	case session.ErrCodeIllegalAction, session.ErrCodeInvalidArgs, session.ErrCodeInvalidStep,
		session.ErrCodeGameOver, session.ErrCodeOutOfRange:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
