package config

import "github.com/ceyewan/flake/xerrors"

// ErrValidationFailed 配置为空或校验失败
var ErrValidationFailed = xerrors.New("configuration validation failed")

// IsInvalidInput 判断错误是否源于非法配置
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, ErrValidationFailed) || xerrors.Is(err, xerrors.ErrInvalidInput)
}
