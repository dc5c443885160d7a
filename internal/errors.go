package internal

import (
	"fmt"
)

var (
	ErrNotFound  = fmt.Errorf("record not found")
	ErrDuplicate = fmt.Errorf("duplicate record")
)

// ConfigurationError indicates that required issuance input, such as a
// subject attribute, is missing or invalid.
type ConfigurationError struct {
	Field string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("missing or invalid configuration for %q", e.Field)
}

// CryptoOperationError wraps a failure from the cryptographic primitives,
// such as key generation or CSR signing.
type CryptoOperationError struct {
	Op  string
	Err error
}

func (e CryptoOperationError) Error() string {
	return fmt.Sprintf("crypto operation %v: %v", e.Op, e.Err)
}

func (e CryptoOperationError) Unwrap() error {
	return e.Err
}

// UnknownProviderError indicates that no issuer plugin is registered under
// the requested name.
type UnknownProviderError struct {
	Name string
}

func (e UnknownProviderError) Error() string {
	return fmt.Sprintf("no issuer plugin registered with name %q", e.Name)
}

// IssuerError is a generic signing failure reported by an authority backend.
type IssuerError struct {
	Authority string
	Err       error
}

func (e IssuerError) Error() string {
	return fmt.Sprintf("authority %q failed to issue certificate: %v", e.Authority, e.Err)
}

func (e IssuerError) Unwrap() error {
	return e.Err
}

// IssuerPaymentRequiredError is reported when a paid certificate authority
// refuses an order for lack of funds or quota. The original message from the
// CA is preserved for surfacing to the caller.
//
// 402 Payment Required https://tools.ietf.org/html/rfc7231#section-6.5.2
type IssuerPaymentRequiredError struct {
	Message string
}

func (e IssuerPaymentRequiredError) Error() string {
	return fmt.Sprintf("402: issuer payment required. %v", e.Message)
}

// AttrNotFoundError indicates a query referencing a field that is not
// filterable or sortable.
type AttrNotFoundError struct {
	Field string
}

func (e AttrNotFoundError) Error() string {
	return fmt.Sprintf("the field %q is not sortable or filterable", e.Field)
}

// InvalidDistributionError indicates a destination that cannot receive the
// certificate being pushed to it.
type InvalidDistributionError struct {
	Field string
}

func (e InvalidDistributionError) Error() string {
	return fmt.Sprintf("invalid distribution %v, must use IAM certificates", e.Field)
}

// InvalidListenerError indicates a listener association that references a
// secure protocol without a certificate.
type InvalidListenerError struct{}

func (e InvalidListenerError) Error() string {
	return "invalid listener, ensure you select a certificate if you are using a secure protocol"
}
