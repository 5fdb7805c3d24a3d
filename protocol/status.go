// File: protocol/status.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Status codes and reason phrases used by the core.

package protocol

// Status codes emitted by the connection core itself. Content handlers may
// use any code; unknown codes serialize with an empty reason phrase.
const (
	StatusContinue           = 100
	StatusOK                 = 200
	StatusNoContent          = 204
	StatusNotModified        = 304
	StatusBadRequest         = 400
	StatusNotFound           = 404
	StatusRequestTimeout     = 408
	StatusPayloadTooLarge    = 413
	StatusHeaderTooLarge     = 431
	StatusInternalError      = 500
	StatusNotImplemented     = 501
	StatusServiceUnavailable = 503
)

var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// StatusText returns the canonical reason phrase for code, or "" if unknown.
func StatusText(code int) string {
	return statusText[code]
}

// bodyAllowedForStatus reports whether a response with the given status code
// is permitted to carry a body.
func bodyAllowedForStatus(code int) bool {
	switch {
	case code >= 100 && code <= 199:
		return false
	case code == StatusNoContent:
		return false
	case code == StatusNotModified:
		return false
	}
	return true
}
