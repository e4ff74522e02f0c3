package probes

import "net/http"

// Classify reports whether a server answering with statusCode counts as up.
// Any answer in the success and redirect ranges is up, and so are the client
// errors that only say the request was refused or misdirected.
func Classify(statusCode int) bool {
	switch {
	case statusCode >= http.StatusOK && statusCode < http.StatusBadRequest:
		return true
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden,
		statusCode == http.StatusNotFound:
		return true
	default:
		return false
	}
}
