package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"Debate_Community/internal/moderation"
	"Debate_Community/internal/repository"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindModerationRejected
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindModerationRejected:
		return "moderation_rejected"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error 服务层统一错误，Reason/Categories 只在审核拒绝时有值
type Error struct {
	Kind       Kind
	Message    string
	Reason     string
	Categories []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func NotFoundError(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func ForbiddenError(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

func RejectedError(v moderation.Rejected) *Error {
	return &Error{Kind: KindModerationRejected, Message: "content rejected by moderation", Reason: v.Reason, Categories: v.Categories}
}

// KindOf 非 *Error 一律视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// storeErr 把存储层错误翻译成服务层错误
func storeErr(what string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflict, Message: what + " was modified concurrently", Err: err}
	case isTransient(err):
		return &Error{Kind: KindUnavailable, Message: "store unavailable", Err: err}
	default:
		return &Error{Kind: KindInternal, Message: "store failure", Err: err}
	}
}

func moderationErr(err error) error {
	if errors.Is(err, moderation.ErrUnavailable) {
		return &Error{Kind: KindUnavailable, Message: "content classifier unavailable", Err: err}
	}
	return &Error{Kind: KindInternal, Message: "moderation failure", Err: err}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
