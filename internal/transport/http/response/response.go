package response

// Resp 统一响应信封；Path 只在失败时填写请求路径
type Resp struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Data    any     `json:"data"`
	Path    *string `json:"path"`
}

// OK 成功响应
func OK(data any, msg string) Resp {
	return Resp{Success: true, Message: msg, Data: data}
}

// Error 失败响应（data 可为字段级错误明细）
func Error(msg string, data any, path string) Resp {
	r := Resp{Success: false, Message: msg, Data: data}
	if path != "" {
		r.Path = &path
	}
	return r
}
