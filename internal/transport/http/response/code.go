package response

import "net/http"

// 通用提示，未知错误不向调用方暴露细节
const (
	MsgValidationFailed = "Validation failed"
	MsgUnexpected       = "An unexpected error occurred. Please try again later."
	MsgNotFound         = "Resource not found"
	MsgTooManyRequests  = "Too many requests"
	MsgServerBusy       = "Server busy"
	MsgBodyTooLarge     = "Request body too large"
	MsgTimeout          = "Request timed out"
	MsgUnauthorized     = "Unauthorized"
	MsgForbidden        = "Forbidden"
)

// StatusMsgMap 中间件拒绝请求时按状态码取默认提示
var StatusMsgMap = map[int]string{
	http.StatusBadRequest:            MsgValidationFailed,
	http.StatusUnauthorized:          MsgUnauthorized,
	http.StatusForbidden:             MsgForbidden,
	http.StatusNotFound:              MsgNotFound,
	http.StatusRequestEntityTooLarge: MsgBodyTooLarge,
	http.StatusTooManyRequests:       MsgTooManyRequests,
	http.StatusInternalServerError:   MsgUnexpected,
	http.StatusServiceUnavailable:    MsgServerBusy,
	http.StatusGatewayTimeout:        MsgTimeout,
}

// Status 只带状态码默认提示的失败响应
func Status(code int, path string) Resp {
	msg, ok := StatusMsgMap[code]
	if !ok {
		msg = http.StatusText(code)
	}
	return Error(msg, nil, path)
}
