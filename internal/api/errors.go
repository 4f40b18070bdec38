package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

// Error codes carried in transport-level failures. Domain findings are never
// reported this way; they travel inside a 200 compilation result.
const (
	CodeMalformedInput      = "MALFORMED_INPUT"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeTimeout             = "TIMEOUT"
	CodeVerifierUnavailable = "VERIFIER_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

const statusClientClosedRequest = 499

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func abortTooLarge(c *gin.Context, limit int64) {
	abortError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// abortMalformed reports a payload that could not become a request.
func abortMalformed(c *gin.Context, err error) {
	detail := errorDetail{Code: CodeMalformedInput, Message: err.Error()}
	var mie *graph.MalformedInputError
	if errors.As(err, &mie) {
		detail.Field = mie.Field
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: detail})
}

// abortPipeline maps an error returned by the compiler itself, which only
// happens for malformed options or an ended context.
func (s *Server) abortPipeline(c *gin.Context, err error) {
	switch {
	case errors.Is(err, graph.ErrMalformedInput):
		abortMalformed(c, err)
	case errors.Is(err, context.DeadlineExceeded):
		abortError(c, http.StatusGatewayTimeout, CodeTimeout, "compilation did not finish within the request budget")
	case errors.Is(err, context.Canceled):
		s.logger.Debug("client went away", "request_id", c.GetString(ctxRequestID))
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		s.logger.Error("compilation failed", "request_id", c.GetString(ctxRequestID), "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}
