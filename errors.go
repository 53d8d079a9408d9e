package stitch

import (
	"errors"

	"github.com/danpasecinic/stitch/internal/errs"
)

type Error = errs.Error

type ErrorCode = errs.Code

type Phase = errs.Phase

const (
	ErrCodeUnknown                 = errs.CodeUnknown
	ErrCodeUnknownProvider         = errs.CodeUnknownProvider
	ErrCodeStrictResolution        = errs.CodeStrictResolution
	ErrCodeCircularModuleReference = errs.CodeCircularModuleReference
	ErrCodeCircularDependency      = errs.CodeCircularDependency
	ErrCodeScopeViolation          = errs.CodeScopeViolation
	ErrCodeFactoryFailed           = errs.CodeFactoryFailed
	ErrCodeLifecycleFailed         = errs.CodeLifecycleFailed
	ErrCodeInvalidDescriptor       = errs.CodeInvalidDescriptor
	ErrCodeNotInstantiated         = errs.CodeNotInstantiated
	ErrCodeTypeMismatch            = errs.CodeTypeMismatch
	ErrCodeTimeout                 = errs.CodeTimeout
	ErrCodeShutdownFailed          = errs.CodeShutdownFailed
	ErrCodeApplicationClosed       = errs.CodeApplicationClosed
	ErrCodeDuplicateProvider       = errs.CodeDuplicateProvider
)

const (
	PhaseInit    = errs.PhaseInit
	PhaseDestroy = errs.PhaseDestroy
)

// Sentinels for errors.Is; matching compares codes only.
var (
	ErrUnknownProvider         = &Error{Code: ErrCodeUnknownProvider}
	ErrStrictResolution        = &Error{Code: ErrCodeStrictResolution}
	ErrCircularModuleReference = &Error{Code: ErrCodeCircularModuleReference}
	ErrCircularDependency      = &Error{Code: ErrCodeCircularDependency}
	ErrScopeViolation          = &Error{Code: ErrCodeScopeViolation}
	ErrFactoryFailed           = &Error{Code: ErrCodeFactoryFailed}
	ErrLifecycleFailed         = &Error{Code: ErrCodeLifecycleFailed}
	ErrInvalidDescriptor       = &Error{Code: ErrCodeInvalidDescriptor}
	ErrNotInstantiated         = &Error{Code: ErrCodeNotInstantiated}
	ErrTypeMismatch            = &Error{Code: ErrCodeTypeMismatch}
	ErrTimeout                 = &Error{Code: ErrCodeTimeout}
	ErrShutdownFailed          = &Error{Code: ErrCodeShutdownFailed}
	ErrApplicationClosed       = &Error{Code: ErrCodeApplicationClosed}
	ErrDuplicateProvider       = &Error{Code: ErrCodeDuplicateProvider}
)

func isCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsUnknownProvider(err error) bool {
	return isCode(err, ErrCodeUnknownProvider)
}

func IsStrictResolution(err error) bool {
	return isCode(err, ErrCodeStrictResolution)
}

func IsCircularModuleReference(err error) bool {
	return isCode(err, ErrCodeCircularModuleReference)
}

func IsCircularDependency(err error) bool {
	return isCode(err, ErrCodeCircularDependency)
}

func IsScopeViolation(err error) bool {
	return isCode(err, ErrCodeScopeViolation)
}

func IsFactoryFailed(err error) bool {
	return isCode(err, ErrCodeFactoryFailed)
}

func IsLifecycleFailed(err error) bool {
	return isCode(err, ErrCodeLifecycleFailed)
}

func IsInvalidDescriptor(err error) bool {
	return isCode(err, ErrCodeInvalidDescriptor)
}

func IsNotInstantiated(err error) bool {
	return isCode(err, ErrCodeNotInstantiated)
}

func IsShutdownFailed(err error) bool {
	return isCode(err, ErrCodeShutdownFailed)
}

// HasCode reports whether any *Error in err's cause chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return errs.Has(err, code)
}
