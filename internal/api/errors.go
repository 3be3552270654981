package api

import (
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/model"
)

var errBadRequest = eris.New("bad request")

func badRequest(msg string) error {
	return eris.Wrap(errBadRequest, msg)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case eris.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case eris.Is(err, model.ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	case eris.Is(err, model.ErrNoCandidates):
		return http.StatusNotFound, "no_candidates"
	case eris.Is(err, model.ErrLookupEmpty):
		return http.StatusNotFound, "lookup_empty"
	case eris.Is(err, model.ErrLookupFailed):
		return http.StatusBadGateway, "lookup_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	msg := model.UserMessage(err)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}

	fields := []zap.Field{
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		zap.L().Warn("api: request failed", fields...)
	} else {
		zap.L().Debug("api: request rejected", fields...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   msg,
		RequestID: RequestIDFrom(r.Context()),
	})
}
