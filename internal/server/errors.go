package server

import (
	"errors"
	"net/http"

	contactdomain "github.com/firmline/firmline/internal/contact/domain"
	firmdomain "github.com/firmline/firmline/internal/firm/domain"
	intakedomain "github.com/firmline/firmline/internal/intake/domain"
	knowledgedomain "github.com/firmline/firmline/internal/knowledge/domain"
	"github.com/firmline/firmline/internal/providers/agent"
	"github.com/gin-gonic/gin"
)

// Server-level sentinels for conditions that arise at the boundary
// rather than inside a domain service.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate_limited")
	ErrInvalidParam = errors.New("invalid_parameter")
)

type errorClass struct {
	status int
	kind   string
}

var errorClasses = []struct {
	err   error
	class errorClass
}{
	{intakedomain.ErrInvalidPayload, errorClass{http.StatusBadRequest, "validation_error"}},
	{intakedomain.ErrMissingIdempotency, errorClass{http.StatusBadRequest, "validation_error"}},
	{contactdomain.ErrInvalidPhone, errorClass{http.StatusBadRequest, "validation_error"}},
	{firmdomain.ErrInvalidFirm, errorClass{http.StatusBadRequest, "validation_error"}},
	{firmdomain.ErrInvalidAction, errorClass{http.StatusBadRequest, "validation_error"}},
	{knowledgedomain.ErrInvalidPolicyGroup, errorClass{http.StatusBadRequest, "validation_error"}},
	{knowledgedomain.ErrInvalidScenario, errorClass{http.StatusBadRequest, "validation_error"}},
	{knowledgedomain.ErrInvalidRule, errorClass{http.StatusBadRequest, "validation_error"}},
	{knowledgedomain.ErrInvalidPracticeArea, errorClass{http.StatusBadRequest, "validation_error"}},
	{knowledgedomain.ErrInvalidCaseType, errorClass{http.StatusBadRequest, "validation_error"}},
	{agent.ErrAgentNotConfigured, errorClass{http.StatusBadRequest, "validation_error"}},
	{ErrInvalidParam, errorClass{http.StatusBadRequest, "validation_error"}},
	{ErrUnauthorized, errorClass{http.StatusUnauthorized, "unauthorized"}},
	{ErrForbidden, errorClass{http.StatusForbidden, "forbidden"}},
	{firmdomain.ErrNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{intakedomain.ErrLeadNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{knowledgedomain.ErrPolicyNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{knowledgedomain.ErrScenarioNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{knowledgedomain.ErrQuestionNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{knowledgedomain.ErrPracticeAreaNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{knowledgedomain.ErrCaseTypeNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{ErrRateLimited, errorClass{http.StatusTooManyRequests, "rate_limited"}},
	{agent.ErrAgentAPIRejected, errorClass{http.StatusBadGateway, "external_error"}},
}

func classify(err error) errorClass {
	for _, entry := range errorClasses {
		if errors.Is(err, entry.err) {
			return entry.class
		}
	}
	return errorClass{http.StatusInternalServerError, "internal_error"}
}

// ClassifyErrorForLog feeds the request logger's error fields.
func ClassifyErrorForLog(err error) (string, string) {
	class := classify(err)
	code := err.Error()
	for _, entry := range errorClasses {
		if errors.Is(err, entry.err) {
			code = entry.err.Error()
			break
		}
	}
	return class.kind, code
}

// AbortWithError records err on the context; the trailing error
// middleware turns it into the response.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandlingMiddleware maps recorded errors to the wire format.
// Runs after handlers; a handler that already wrote a body wins.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		lastErr := c.Errors.Last()
		if lastErr == nil || c.Writer.Written() {
			return
		}

		class := classify(lastErr.Err)
		message := lastErr.Err.Error()
		if class.status == http.StatusInternalServerError {
			// Internal detail stays in the logs.
			message = "internal error"
		}
		c.JSON(class.status, gin.H{
			"error": gin.H{
				"type":    class.kind,
				"message": message,
			},
		})
	}
}
