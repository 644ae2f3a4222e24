// Package validation provides input validation middleware for the
// streamswap API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// MinStreamNameLength/MaxStreamNameLength and MinURLLength/MaxURLLength
// bound the stream registry's free-text fields (spec.md §4.3 create_stream
// name/url: name in [2, 64], url in [12, 128]).
const (
	MinStreamNameLength = 2
	MaxStreamNameLength = 64
	MinURLLength        = 12
	MaxURLLength        = 128
)

var (
	// hexRegex validates hex strings (for signatures, etc)
	hexRegex = regexp.MustCompile(`^(0x)?[a-fA-F0-9]+$`)
	// streamNameRegex restricts stream names to a URL-safe charset.
	streamNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// urlRegex is a stricter, distinct charset from streamNameRegex: only
	// what a scheme+host+path URL legitimately needs, so a stream URL can't
	// smuggle characters a stream name would reject for being unsafe.
	urlRegex = regexp.MustCompile(`^[a-zA-Z0-9:/._~?#\[\]@!$&'()*+,;=%-]+$`)
	// denomRegex is the IBC/native-denom charset convention.
	denomRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/-]{1,127}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidEthAddress checks if a string has the shape of an address
// (0x + 40 hex chars, any letter case; the EIP-55 checksum is not checked).
// Address derivation and signature verification remain out of scope — this
// only rejects malformed input before it reaches the engine.
func IsValidEthAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// IsValidHex checks if a string is valid hex
func IsValidHex(s string) bool {
	return hexRegex.MatchString(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// SanitizeAddress normalizes an Ethereum address
func SanitizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.ToLower(addr)

	// Ensure 0x prefix
	if !strings.HasPrefix(addr, "0x") && len(addr) == 40 {
		addr = "0x" + addr
	}

	return addr
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidAddress checks if a field is a valid Ethereum address
func ValidAddress(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidEthAddress(value) {
			return &ValidationError{Field: field, Message: "must be a valid Ethereum address (0x...)"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// AddressParamMiddleware validates the :address URL parameter on routes that use it.
// Apply to route groups that include :address params to reject malformed addresses early.
func AddressParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := c.Param("address")
		if addr != "" && !IsValidEthAddress(addr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_address",
				"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
			})
			return
		}
		c.Next()
	}
}

// ValidAmount checks if a value is a valid USDC amount (must be positive)
func ValidAmount(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		// Should be a positive decimal number with at most one decimal point
		decimalCount := 0
		hasNonZero := false
		for i, c := range value {
			if c == '.' {
				decimalCount++
				if decimalCount > 1 {
					return &ValidationError{Field: field, Message: "invalid amount format"}
				}
				if i == 0 || i == len(value)-1 {
					return &ValidationError{Field: field, Message: "invalid amount format"}
				}
				continue
			}
			if c < '0' || c > '9' {
				return &ValidationError{Field: field, Message: "invalid amount format"}
			}
			if c != '0' {
				hasNonZero = true
			}
		}
		if !hasNonZero {
			return &ValidationError{Field: field, Message: "amount must be greater than zero"}
		}
		return nil
	}
}

// ValidStreamName checks a registry stream name against the allowed
// charset and length (spec.md §4.3).
func ValidStreamName(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		if len(value) < MinStreamNameLength {
			return &ValidationError{Field: field, Message: "below minimum length"}
		}
		if len(value) > MaxStreamNameLength {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		if !streamNameRegex.MatchString(value) {
			return &ValidationError{Field: field, Message: "must contain only letters, digits, '.', '_', or '-'"}
		}
		return nil
	}
}

// ValidURL checks the optional registry stream URL's length and charset; it
// is informational metadata, not fetched or followed by the engine, but
// still bounded to a safe set distinct from the stream-name charset since it
// must tolerate scheme/host/path/query characters a name never needs.
func ValidURL(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if len(value) < MinURLLength {
			return &ValidationError{Field: field, Message: "below minimum length"}
		}
		if len(value) > MaxURLLength {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		if !urlRegex.MatchString(value) {
			return &ValidationError{Field: field, Message: "contains characters not allowed in a url"}
		}
		return nil
	}
}

// ValidDenom checks a token denom against the IBC/native-denom charset
// convention used throughout the registry's accepted-input-denom list.
func ValidDenom(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		if !denomRegex.MatchString(value) {
			return &ValidationError{Field: field, Message: "invalid denom format"}
		}
		return nil
	}
}
