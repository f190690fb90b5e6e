package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound はコーパスやインデックスなど必要な入力が存在しない場合のエラー
	ErrNotFound = errors.New("not found")

	// ErrUpstream は Embedding / Chat など外部サービス呼び出しが失敗した場合のエラー
	ErrUpstream = errors.New("upstream error")

	// ErrInvalidInput はリクエストが不正な場合のエラー
	ErrInvalidInput = errors.New("invalid input")
)

// NotFound は ErrNotFound をラップしたエラーを生成する
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Upstream は外部サービスのエラーを ErrUpstream でラップする。
// 元のエラーメッセージはそのまま保持され、errors.Is/As で辿れる。
func Upstream(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrUpstream, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// InvalidInput は ErrInvalidInput をラップしたエラーを生成する
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsNotFound は err が ErrNotFound に該当するか判定する
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUpstream は err が ErrUpstream に該当するか判定する
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}
