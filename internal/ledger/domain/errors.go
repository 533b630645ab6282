package domain

import "errors"

// ErrorKind 错误分类，API 层据此映射 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindUnauthenticated
	KindInsufficientFunds
	KindConflict
	KindExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindConflict:
		return "conflict"
	case KindExhausted:
		return "exhausted"
	default:
		return "internal"
	}
}

// Error 业务错误
// Code 唯一标识一种失败，errors.Is 按 Code 比较
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is 让 fmt.Errorf("%w") 包装后的错误仍可被 errors.Is 识别
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation
var (
	ErrInvalidNationalID     = newError(KindValidation, "invalid_national_id", "national id must be 11 digits")
	ErrMissingField          = newError(KindValidation, "missing_field", "required field is missing")
	ErrPasswordMismatch      = newError(KindValidation, "password_mismatch", "passwords do not match")
	ErrInvalidCardKind       = newError(KindValidation, "invalid_card_kind", "unknown card kind")
	ErrInvalidInvestmentKind = newError(KindValidation, "invalid_investment_kind", "investment kind is required")
	ErrDescriptionTooLong    = newError(KindValidation, "description_too_long", "description exceeds 200 characters")
)

// NotFound
var (
	ErrIdentityNotFound          = newError(KindNotFound, "identity_not_found", "identity not found")
	ErrAccountNotFound           = newError(KindNotFound, "account_not_found", "account not found")
	ErrDestinationNotFound       = newError(KindNotFound, "destination_not_found", "destination account not found")
	ErrNoCheckingAccount         = newError(KindNotFound, "no_checking_account", "no checking account found")
	ErrCardNotFound              = newError(KindNotFound, "card_not_found", "card not found")
	ErrInvestmentAccountNotFound = newError(KindNotFound, "investment_account_not_found", "investment account not found")
)

// Authorization
var (
	ErrAccountNotOwned           = newError(KindAuthorization, "account_not_owned", "account does not belong to caller")
	ErrCardNotOwned              = newError(KindAuthorization, "card_not_owned", "card does not belong to caller")
	ErrInvestmentAccountNotOwned = newError(KindAuthorization, "investment_account_not_owned", "investment account does not belong to caller")
	ErrInvalidCredentials        = newError(KindUnauthenticated, "invalid_credentials", "national id or password is incorrect")
)

// InsufficientFunds
var ErrInsufficientFunds = newError(KindInsufficientFunds, "insufficient_funds", "insufficient funds")

// Conflict
var (
	ErrSelfTransfer    = newError(KindConflict, "self_transfer", "cannot transfer to the same account")
	ErrInvalidAmount   = newError(KindConflict, "invalid_amount", "amount must be greater than zero")
	ErrNationalIDTaken = newError(KindConflict, "national_id_taken", "national id already registered")
	ErrEmailTaken      = newError(KindConflict, "email_taken", "email already registered")
)

// Exhausted
var (
	ErrGenerationExhausted = newError(KindExhausted, "generation_exhausted", "could not generate a unique identifier")
	ErrConcurrentUpdate    = newError(KindExhausted, "concurrent_update", "account modified concurrently, retries exhausted")
)

// ErrStaleVersion 乐观锁冲突 (version 不匹配)，service 捕获后整体重试
var ErrStaleVersion = newError(KindConflict, "stale_version", "optimistic lock conflict: account modified by others")

// KindOf 返回错误分类，非业务错误视为 internal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf 返回错误码，非业务错误返回 "internal"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
