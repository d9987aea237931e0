// Package qr builds verification payloads and renders them as QR rasters.
package qr

import (
	"errors"
	"net/url"
	"strings"
)

// VerifyPath is the route segment verification links point at.
const VerifyPath = "/verify/"

var ErrEmptyPayloadPart = errors.New("verification base url and identifier are required")

// BuildPayload returns <base>/verify/<identifier>. The same string is encoded
// into the QR and persisted as the document's qr code data.
func BuildPayload(base, identifier string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || identifier == "" {
		return "", ErrEmptyPayloadPart
	}
	return base + VerifyPath + url.PathEscape(identifier), nil
}
