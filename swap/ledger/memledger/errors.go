package memledger

import (
	"errors"
	"fmt"
)

// ErrorCode identifies why the reference ledger rejected a request.
type ErrorCode string

const (
	// ErrorInsufficientFunds indicates the source cannot cover the amount.
	ErrorInsufficientFunds ErrorCode = "0018"
	// ErrorAccountIneligibility indicates an account is unknown to the ledger.
	ErrorAccountIneligibility ErrorCode = "0019"
	// ErrorAccountStatusRestriction indicates a frozen account.
	ErrorAccountStatusRestriction ErrorCode = "0024"
	// ErrorOverflow indicates a credit would overflow the destination balance.
	ErrorOverflow ErrorCode = "0097"
	// ErrorAuthorityMismatch indicates the request was not self-authorized.
	ErrorAuthorityMismatch ErrorCode = "0101"
	// ErrorOwnershipMismatch indicates the source does not hold the unit.
	ErrorOwnershipMismatch ErrorCode = "0102"
	// ErrorInvalidInput indicates a malformed request.
	ErrorInvalidInput ErrorCode = "1001"
)

// DomainError is the ledger's rejection of a transfer request.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error returns the formatted domain error string.
func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// NewDomainError creates a domain error.
func NewDomainError(code ErrorCode, field, message string) error {
	return DomainError{Code: code, Field: field, Message: message}
}

// CodeOf extracts the ErrorCode from err, if it wraps a DomainError.
func CodeOf(err error) (ErrorCode, bool) {
	var domainErr DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code, true
	}

	return "", false
}

// IsDomainError reports whether err is a business rejection rather than an
// infrastructure failure.
func IsDomainError(err error) bool {
	_, ok := CodeOf(err)

	return ok
}
