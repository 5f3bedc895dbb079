package error

import (
	"net/http"
	"time"
)

type Error struct {
	httpCode  int
	errorCode int
	errorMsg  string
	errorDesc string
	details   map[string]any
}

func New(httpCode, errorCode int, errorMsg string, errorDesc string) *Error {
	return &Error{
		httpCode:  httpCode,
		errorCode: errorCode,
		errorMsg:  errorMsg,
		errorDesc: errorDesc,
	}

}
func From(err error) *Error {
	if appErr, ok := err.(*Error); ok {
		return appErr
	}
	return InternalServer(err.Error())
}

// WithDetail 附加欄位，會平鋪到錯誤回應的 JSON
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// ✅ 用戶端錯誤 (400 系列)
func ValidateErr(errorDesc string) *Error {
	errCode := BAD_REQUEST_BODY
	return New(http.StatusBadRequest, errCode, "bad-request/body", errorDesc)
}
func ValidatePathParamsErr(errorDesc string) *Error {
	errCode := BAD_REQUEST_PARAMS
	return New(http.StatusBadRequest, errCode, "bad-request/params", errorDesc)
}

func InvalidContent(errorDesc string) *Error {
	return New(http.StatusBadRequest, INVALID_CONTENT, "invalid-content", errorDesc)
}

func InvalidStyle(errorDesc string) *Error {
	return New(http.StatusBadRequest, INVALID_STYLE, "invalid-style", errorDesc)
}

func UnencodableContent(errorDesc string) *Error {
	return New(http.StatusBadRequest, UNENCODABLE_CONTENT, "unencodable-content", errorDesc)
}

func UserAlreadyExists(errorDesc string) *Error {
	return New(http.StatusBadRequest, USER_ALREADY_EXISTS, "user-already-exists", errorDesc)
}

// ✅ 伺服器內部錯誤 (500 系列)
func InternalServer(errorDesc string) *Error {
	return New(http.StatusInternalServerError, INTERNAL_ERROR, "internal-server-error", errorDesc)
}

func DatabaseError(errorDesc string) *Error {
	return New(http.StatusInternalServerError, DATABASE_ERROR, "database-error", errorDesc)
}

func EncoderError(errorDesc string) *Error {
	return New(http.StatusInternalServerError, ENCODER_ERROR, "encoder-error", errorDesc)
}

func ServiceUnavailable(errorDesc string) *Error {
	return New(http.StatusServiceUnavailable, SERVICE_UNAVAILABLE, "service-unavailable", errorDesc)
}

// ✅ 用戶請求錯誤 (400 系列)
func BadRequest(errorDesc string, errorCode ...int) *Error {
	errCode := BAD_REQUEST_BODY
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusBadRequest, errCode, "bad-request", errorDesc)
}

func BadRequestParams(errorDesc string) *Error {
	return New(http.StatusBadRequest, BAD_REQUEST_PARAMS, "bad-request-params", errorDesc)
}

// ✅ 權限錯誤 (401, 403)
func Unauthorized(errorDesc string, errorCode ...int) *Error {
	errCode := UNAUTHORIZED
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusUnauthorized, errCode, "unauthorized", errorDesc)
}

func InvalidSession(errorDesc string) *Error {
	return New(http.StatusUnauthorized, INVALID_SESSION, "invalid-session", errorDesc)
}

func InvalidCredentials(errorDesc string) *Error {
	return New(http.StatusUnauthorized, INVALID_CREDENTIALS, "invalid-credentials", errorDesc)
}

// UnauthorizedApiKey key 可辨識但不可用（撤銷、過期），回 403 而非 401
func UnauthorizedApiKey(errorDesc string) *Error {
	return New(http.StatusForbidden, UNAUTHORIZED_API_KEY, "unauthorized-api-key", errorDesc)
}

func RateLimitExceeded(errorDesc string) *Error {
	return New(http.StatusTooManyRequests, RATE_LIMIT_EXCEEDED, "rate-limit-exceeded", errorDesc)
}

// QuotaExceeded 配額拒絕，回應會帶上 scope/used/limit/resetTime
func QuotaExceeded(scope string, used, limit int64, resetTime time.Time) *Error {
	return New(http.StatusTooManyRequests, QUOTA_EXCEEDED, "quota-exceeded", scope+" quota exceeded").
		WithDetail("scope", scope).
		WithDetail("used", used).
		WithDetail("limit", limit).
		WithDetail("resetTime", resetTime.UTC())
}

func Forbidden(errorDesc string, errorCode ...int) *Error {
	errCode := FORBIDDEN
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusForbidden, errCode, "forbidden", errorDesc)
}

// ✅ 資源找不到 (404)
func NotFound(errorDesc string, errorCode ...int) *Error {
	errCode := NOT_FOUND
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusNotFound, errCode, "not-found", errorDesc)
}
func (e *Error) HttpCode() int {
	return e.httpCode
}

func (e *Error) ErrorCode() int {
	return e.errorCode
}
func (e *Error) ErrorDesc() string {
	return e.errorDesc
}
func (e *Error) Details() map[string]any {
	return e.details
}
func (e *Error) Error() string {
	return e.errorMsg
}
func MapHttpStatusToError(status int, desc string) *Error {
	switch status {
	case http.StatusBadRequest:
		return BadRequest(desc)
	case http.StatusUnauthorized:
		return Unauthorized(desc)
	case http.StatusForbidden:
		return Forbidden(desc)
	case http.StatusNotFound:
		return NotFound(desc)
	case http.StatusTooManyRequests:
		return RateLimitExceeded(desc)
	case http.StatusServiceUnavailable:
		return ServiceUnavailable(desc)
	default:
		return InternalServer(desc)
	}
}
