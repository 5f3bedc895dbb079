package response

import (
	"net/http"
	cErr "qrious/internal/pkg/error"

	"github.com/gin-gonic/gin"
)

// ErrorBody 錯誤回應，details 會平鋪在同一層
type ErrorBody map[string]any

func Create(c *gin.Context, data any) {
	c.Status(http.StatusCreated)
	c.Set("data", data)
	c.Set("message", messageOf(data, "Create Success"))
	c.Abort()
}
func Success(c *gin.Context, data any) {
	c.Status(http.StatusOK)
	c.Set("data", data)
	c.Set("message", messageOf(data, "Request Success"))
	c.Abort()
}
func AbortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}
func Fail(c *gin.Context, requestID string, httpCode int, errorCode int, desc string, details map[string]any) {
	body := ErrorBody{}
	for k, v := range details {
		body[k] = v
	}
	body["error"] = desc
	body["code"] = errorCode
	body["requestID"] = requestID
	c.JSON(httpCode, body)
	c.Abort()
}

func FailByErr(c *gin.Context, requestID string, err error) {
	v, ok := err.(*cErr.Error)
	if ok {
		Fail(c, requestID, v.HttpCode(), v.ErrorCode(), v.ErrorDesc(), v.Details())
	} else {
		Fail(c, requestID, http.StatusInternalServerError, cErr.INTERNAL_ERROR, "internal error", nil)
	}
}

// messageOf 取出 payload 內的 message 欄位作為 log 摘要
func messageOf(data any, fallback string) string {
	switch v := data.(type) {
	case gin.H:
		if s, ok := v["message"].(string); ok && s != "" {
			return s
		}
	case interface{ GetMessage() string }:
		if s := v.GetMessage(); s != "" {
			return s
		}
	}
	return fallback
}
