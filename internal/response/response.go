package response

import (
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	StatusCode int               `json:"statusCode"`
	Code       ErrCode           `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RequestID  string            `json:"requestId"`
}

// Page is the JSON shape of paginated listings.
type Page struct {
	Data interface{}    `json:"data"`
	Meta model.PageMeta `json:"meta"`
}

// ────────────────────────────────────────────────────────────────────────────
// Helper builders
// ────────────────────────────────────────────────────────────────────────────

// Success sends data as the response body.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// SuccessWithPagination sends one page of data with its meta.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, meta model.PageMeta) {
	c.JSON(statusCode, Page{Data: data, Meta: meta})
}

// Fail sends an error response carrying the default message of code.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	FailWithMessage(c, statusCode, code, GetMessage(code))
}

// FailWithMessage sends an error response with a domain message.
func FailWithMessage(c *gin.Context, statusCode int, code ErrCode, message string) {
	c.JSON(statusCode, buildError(c, statusCode, code, message, nil))
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, buildError(c, statusCode, code, GetMessage(code), fields))
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, buildError(c, statusCode, code, GetMessage(code), nil))
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func buildError(c *gin.Context, statusCode int, code ErrCode, message string, fields map[string]string) ErrorBody {
	return ErrorBody{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Fields:     fields,
		RequestID:  requestID(c),
	}
}

func requestID(c *gin.Context) string {
	reqID, _ := c.Get(ContextKeyRequestID)
	id, ok := reqID.(string)
	if !ok || id == "" {
		id = uuid.New().String() // Fallback if middleware not applied
	}
	return id
}
