package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Code uint16

const (
	CodeUnknown Code = iota
	CodeUnknownProvider
	CodeStrictResolution
	CodeCircularModuleReference
	CodeCircularDependency
	CodeScopeViolation
	CodeFactoryFailed
	CodeLifecycleFailed
	CodeInvalidDescriptor
	CodeNotInstantiated
	CodeTypeMismatch
	CodeTimeout
	CodeShutdownFailed
	CodeApplicationClosed
	CodeDuplicateProvider
)

var codeNames = map[Code]string{
	CodeUnknown:                 "UNKNOWN",
	CodeUnknownProvider:         "UNKNOWN_PROVIDER",
	CodeStrictResolution:        "STRICT_RESOLUTION",
	CodeCircularModuleReference: "CIRCULAR_MODULE_REFERENCE",
	CodeCircularDependency:      "CIRCULAR_DEPENDENCY",
	CodeScopeViolation:          "SCOPE_VIOLATION",
	CodeFactoryFailed:           "FACTORY_FAILED",
	CodeLifecycleFailed:         "LIFECYCLE_FAILED",
	CodeInvalidDescriptor:       "INVALID_DESCRIPTOR",
	CodeNotInstantiated:         "NOT_INSTANTIATED",
	CodeTypeMismatch:            "TYPE_MISMATCH",
	CodeTimeout:                 "TIMEOUT",
	CodeShutdownFailed:          "SHUTDOWN_FAILED",
	CodeApplicationClosed:       "APPLICATION_CLOSED",
	CodeDuplicateProvider:       "DUPLICATE_PROVIDER",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Phase tags lifecycle errors with the hook kind that failed.
type Phase string

const (
	PhaseInit    Phase = "init"
	PhaseDestroy Phase = "destroy"
)

type Error struct {
	Code    Code
	Message string
	Token   string
	Module  string
	Phase   Phase
	Chain   []string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Code.String())
	b.WriteString("]")

	if e.Module != "" {
		fmt.Fprintf(&b, " module=%q", e.Module)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, " token=%q", e.Token)
	}
	if e.Phase != "" {
		fmt.Fprintf(&b, " phase=%s", e.Phase)
	}
	if e.Module != "" || e.Token != "" || e.Phase != "" {
		b.WriteString(":")
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

func (e *Error) WithModule(module string) *Error {
	e.Module = module
	return e
}

func (e *Error) WithChain(chain []string) *Error {
	e.Chain = chain
	return e
}

func (e *Error) WithPhase(phase Phase) *Error {
	e.Phase = phase
	return e
}

func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func Has(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

func UnknownProvider(token string) *Error {
	return New(CodeUnknownProvider, "no provider registered for "+token, nil).WithToken(token)
}

func StrictResolution(module, token string) *Error {
	return New(
		CodeStrictResolution,
		"token is declared in the graph but not visible from this module",
		nil,
	).WithModule(module).WithToken(token)
}

func CircularModuleReference(chain []string) *Error {
	return New(
		CodeCircularModuleReference,
		"circular module import detected: "+strings.Join(chain, " -> "),
		nil,
	).WithChain(chain)
}

func CircularDependency(chain []string) *Error {
	return New(
		CodeCircularDependency,
		"circular dependency detected: "+strings.Join(chain, " -> "),
		nil,
	).WithChain(chain)
}

func ScopeViolation(token, message string) *Error {
	return New(CodeScopeViolation, message, nil).WithToken(token)
}

func FactoryFailed(module, token string, cause error) *Error {
	return New(CodeFactoryFailed, "provider factory failed", cause).WithModule(module).WithToken(token)
}

func LifecycleFailed(phase Phase, unit string, cause error) *Error {
	return New(CodeLifecycleFailed, "lifecycle hook failed for "+unit, cause).WithPhase(phase).WithToken(unit)
}

func InvalidDescriptor(module, message string) *Error {
	return New(CodeInvalidDescriptor, message, nil).WithModule(module)
}

func NotInstantiated(module, token string) *Error {
	return New(CodeNotInstantiated, "singleton has not been constructed", nil).WithModule(module).WithToken(token)
}

func TypeMismatch(token, want string, got any) *Error {
	return New(CodeTypeMismatch, fmt.Sprintf("expected %s, got %T", want, got), nil).WithToken(token)
}

func Timeout(unit string, cause error) *Error {
	return New(CodeTimeout, "hook did not finish in time", cause).WithToken(unit)
}

func ShutdownFailed(cause error) *Error {
	return New(CodeShutdownFailed, "shutdown completed with errors", cause)
}

func ApplicationClosed() *Error {
	return New(CodeApplicationClosed, "application is closed", nil)
}

func DuplicateProvider(module, token string) *Error {
	return New(CodeDuplicateProvider, "provider already declared in module", nil).WithModule(module).WithToken(token)
}
