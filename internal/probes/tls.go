package probes

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/pkg/errors"
)

var ErrTLSVerification = errors.New("TLS certificate verification failed; set ignore_tls_errors: true for this server to skip verification")

func isTLSVerificationError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)

	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}

func tlsVerificationError(err error) error {
	return errors.Wrap(ErrTLSVerification, err.Error())
}

// certificateExpiry returns the NotAfter date of the leaf certificate, or the
// zero time for plain HTTP responses.
func certificateExpiry(state *tls.ConnectionState) time.Time {
	if state == nil || len(state.PeerCertificates) == 0 {
		return time.Time{}
	}
	return state.PeerCertificates[0].NotAfter
}
