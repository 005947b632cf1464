package service

import (
	"errors"
	"strings"
)

// Kind classifies a lifecycle error for callers mapping it to a transport status
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInvalidInput Kind = "invalid_input"
)

// Error is a typed lifecycle failure. Two errors match under errors.Is when
// their codes are equal, so sentinels below can be compared against errors
// that carry extra detail.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Fields    []string
	Retryable bool
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrContractNotFound        = &Error{Kind: KindNotFound, Code: "CONTRACT_NOT_FOUND", Message: "contract not found"}
	ErrTenantNotFound          = &Error{Kind: KindNotFound, Code: "TENANT_NOT_FOUND", Message: "tenant does not exist"}
	ErrForbidden               = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "you are not a party to this contract"}
	ErrDuplicateContractID     = &Error{Kind: KindConflict, Code: "DUPLICATE_CONTRACT_ID", Message: "a contract with this id already exists"}
	ErrAlreadySigned           = &Error{Kind: KindConflict, Code: "ALREADY_SIGNED", Message: "contract already signed in this role"}
	ErrInvalidVerificationCode = &Error{Kind: KindConflict, Code: "INVALID_VERIFICATION_CODE", Message: "verification code does not match"}
	ErrVersionConflict         = &Error{Kind: KindConflict, Code: "VERSION_CONFLICT", Message: "contract was modified concurrently, retry", Retryable: true}
	ErrInvalidSignatureImage   = &Error{Kind: KindInvalidInput, Code: "INVALID_SIGNATURE_IMAGE", Message: "signature image is missing or truncated"}
	ErrNoStoredSignature       = &Error{Kind: KindNotFound, Code: "NO_STORED_SIGNATURE", Message: "no stored signature for this user"}
	ErrUnsupportedRole         = &Error{Kind: KindInvalidInput, Code: "UNSUPPORTED_ROLE", Message: "unsupported role"}
	ErrInvalidDocumentType     = &Error{Kind: KindInvalidInput, Code: "INVALID_DOCUMENT_TYPE", Message: "unsupported document type"}
)

const validationCode = "VALIDATION_FAILED"

// ErrValidation matches every validation failure under errors.Is
var ErrValidation = &Error{Kind: KindValidation, Code: validationCode, Message: "validation failed"}

func newValidationError(message string, fields []string) *Error {
	return &Error{Kind: KindValidation, Code: validationCode, Message: message, Fields: fields}
}

// KindOf returns the kind of a lifecycle error, or "" for infrastructure errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
