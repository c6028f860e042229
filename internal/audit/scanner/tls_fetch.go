package scanner

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// signatureNames maps Go's signature algorithms to the OpenSSL names used
// in certificate tooling and in our finding messages.
var signatureNames = map[x509.SignatureAlgorithm]string{
	x509.MD2WithRSA:       "md2WithRSAEncryption",
	x509.MD5WithRSA:       "md5WithRSAEncryption",
	x509.SHA1WithRSA:      "sha1WithRSAEncryption",
	x509.SHA256WithRSA:    "sha256WithRSAEncryption",
	x509.SHA384WithRSA:    "sha384WithRSAEncryption",
	x509.SHA512WithRSA:    "sha512WithRSAEncryption",
	x509.DSAWithSHA1:      "dsaWithSHA1",
	x509.DSAWithSHA256:    "dsa_with_SHA256",
	x509.ECDSAWithSHA1:    "ecdsa-with-SHA1",
	x509.ECDSAWithSHA256:  "ecdsa-with-SHA256",
	x509.ECDSAWithSHA384:  "ecdsa-with-SHA384",
	x509.ECDSAWithSHA512:  "ecdsa-with-SHA512",
	x509.SHA256WithRSAPSS: "rsassaPss",
	x509.SHA384WithRSAPSS: "rsassaPss",
	x509.SHA512WithRSAPSS: "rsassaPss",
	x509.PureEd25519:      "ED25519",
}

// DialFetcher retrieves the leaf certificate over a TLS handshake. It does
// not verify the chain: the audit inspects algorithms, not trust.
type DialFetcher struct {
	dialer *tls.Dialer
}

// NewDialFetcher creates a DialFetcher.
func NewDialFetcher() *DialFetcher {
	return &DialFetcher{dialer: &tls.Dialer{
		Config: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // certificate is inspected, not trusted
	}}
}

// Fetch connects to host:port and describes the leaf certificate.
func (f *DialFetcher) Fetch(ctx context.Context, host string, port int) (CertInfo, error) {
	cfg := f.dialer.Config.Clone()
	cfg.ServerName = host
	d := &tls.Dialer{NetDialer: f.dialer.NetDialer, Config: cfg}

	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return CertInfo{}, fmt.Errorf("%w: %v", audit.ErrNetwork, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return CertInfo{}, fmt.Errorf("%w: unexpected connection type %T", audit.ErrNetwork, conn)
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return CertInfo{}, fmt.Errorf("%w: server presented no certificate", audit.ErrCertificate)
	}
	return DescribeCertificate(certs[0])
}

// DescribeCertificate extracts the signature algorithm name and public key
// size from a parsed certificate.
func DescribeCertificate(cert *x509.Certificate) (CertInfo, error) {
	name, ok := signatureNames[cert.SignatureAlgorithm]
	if !ok {
		name = cert.SignatureAlgorithm.String()
	}

	var bits int
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		bits = pub.N.BitLen()
	case *ecdsa.PublicKey:
		bits = pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		bits = 256
	default:
		return CertInfo{}, fmt.Errorf("%w: unsupported public key type %T", audit.ErrCertificate, cert.PublicKey)
	}
	return CertInfo{SignatureAlgorithm: name, KeyBits: bits}, nil
}
