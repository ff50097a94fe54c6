package order

import "errors"

var (
	// ErrNotFound 表示订单不存在。
	ErrNotFound = errors.New("order: not found")
	// ErrTerminal 表示订单已处于终态，拒绝后续修改。
	ErrTerminal = errors.New("order: already in terminal status")
	// ErrDuplicateID 表示订单ID冲突。
	ErrDuplicateID = errors.New("order: duplicate id")
)

// ValidationError 携带订单被拒绝的可读原因，订单不会进入仓库。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "order: 校验失败: " + e.Reason
}

// IsValidation 判断错误是否为校验失败。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
