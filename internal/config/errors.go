package config

// FieldError 指出校验失败的环境变量键（PORT、REGISTRY_URL 等），check-config 会原样输出给运维。
// Err 保留底层原因，例如 url.Parse 的错误。
type FieldError struct {
	Key    string
	Reason string
	Err    error
}

func (e FieldError) Error() string {
	if e.Err != nil {
		return e.Key + ": " + e.Err.Error()
	}
	return e.Key + ": " + e.Reason
}

func (e FieldError) Unwrap() error {
	return e.Err
}

func newFieldError(key, reason string) error {
	return FieldError{Key: key, Reason: reason}
}

func wrapFieldError(key string, err error) error {
	return FieldError{Key: key, Err: err}
}
