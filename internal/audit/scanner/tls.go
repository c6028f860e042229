package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"golang.org/x/time/rate"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// DefaultTLSPort is used for hosts given without a port.
const DefaultTLSPort = 443

// rsaSafeBits is the smallest RSA modulus not flagged as High.
const rsaSafeBits = 3072

// CertInfo is the certificate metadata the TLS scanner classifies.
type CertInfo struct {
	SignatureAlgorithm string
	KeyBits            int
}

// CertFetcher retrieves certificate metadata from a live endpoint.
type CertFetcher interface {
	Fetch(ctx context.Context, host string, port int) (CertInfo, error)
}

// TLSConfig configures a TLSScanner.
type TLSConfig struct {
	DefaultPort   int
	Concurrency   int
	Timeout       time.Duration // per-host
	RatePerSecond float64       // 0 means unlimited
	Logger        *slog.Logger
}

// TLSScanner classifies the certificates presented by TLS endpoints.
type TLSScanner struct {
	fetcher CertFetcher
	config  TLSConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewTLSScanner creates a TLSScanner backed by fetcher.
func NewTLSScanner(fetcher CertFetcher, config TLSConfig) *TLSScanner {
	if config.DefaultPort <= 0 {
		config.DefaultPort = DefaultTLSPort
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	s := &TLSScanner{
		fetcher: fetcher,
		config:  config,
		logger:  audit.OrDiscard(config.Logger).With("scanner", "tls"),
	}
	if config.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}
	return s
}

// Name returns the scanner name.
func (s *TLSScanner) Name() string {
	return "tls"
}

// Scan checks every host in target.Hosts. Each host yields exactly one
// finding, in host order, and one host's failure does not affect the rest.
func (s *TLSScanner) Scan(ctx context.Context, target audit.Target) (*audit.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tls scanner cancelled: %w", err)
	}

	res := &audit.Result{}
	if len(target.Hosts) == 0 {
		return res, nil
	}

	mapper := iter.Mapper[string, audit.Finding]{MaxGoroutines: s.config.Concurrency}
	res.Findings = mapper.Map(target.Hosts, func(entry *string) audit.Finding {
		host, port, err := SplitHostPort(*entry, s.config.DefaultPort)
		if err != nil {
			s.logger.Error("invalid host", "host", *entry, "error", err)
			return errorFinding(*entry, err)
		}
		return s.ScanHost(ctx, host, port)
	})

	for i, f := range res.Findings {
		res.Discovered = append(res.Discovered, target.Hosts[i])
		if f.Risk == audit.RiskUnknown {
			res.Errors = append(res.Errors, audit.ScanError{Scanner: s.Name(), Target: target.Hosts[i], Err: errors.New(f.Message)})
		}
	}
	return res, nil
}

// ScanHost fetches and classifies one endpoint. It never returns an error;
// failures become a single Unknown finding.
func (s *TLSScanner) ScanHost(ctx context.Context, host string, port int) audit.Finding {
	endpoint := net.JoinHostPort(host, strconv.Itoa(port))
	s.logger.Info("scanning TLS certificate", "endpoint", endpoint)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return errorFinding(endpoint, err)
		}
	}

	hctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	info, err := s.fetcher.Fetch(hctx, host, port)
	if err != nil {
		s.logger.Error("error scanning TLS certificate", "endpoint", endpoint, "error", err)
		return errorFinding(endpoint, err)
	}
	f := ClassifyCert(info)
	f.Endpoint = endpoint
	return f
}

// ClassifyCert builds the finding for certificate metadata. RSA keys
// shorter than 3072 bits are High; everything else is Low.
func ClassifyCert(info CertInfo) audit.Finding {
	risk := audit.RiskLow
	if strings.Contains(strings.ToLower(info.SignatureAlgorithm), "rsa") && info.KeyBits < rsaSafeBits {
		risk = audit.RiskHigh
	}
	return audit.Finding{
		Location: "TLS",
		Line:     audit.NotApplicable,
		Message:  fmt.Sprintf("%s with %d bits", info.SignatureAlgorithm, info.KeyBits),
		Risk:     risk,
		Source:   "tls",
	}
}

func errorFinding(endpoint string, err error) audit.Finding {
	return audit.Finding{
		Location: "TLS",
		Line:     audit.NotApplicable,
		Message:  fmt.Sprintf("Error scanning TLS certificate: %v", err),
		Risk:     audit.RiskUnknown,
		Source:   "tls",
		Endpoint: endpoint,
	}
}

// SplitHostPort parses "host" or "host:port", applying defaultPort when no
// port is given. Bare IPv6 addresses are accepted.
func SplitHostPort(entry string, defaultPort int) (string, int, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", 0, fmt.Errorf("empty host")
	}
	host, portStr, err := net.SplitHostPort(entry)
	if err != nil {
		// No port, or a bare IPv6 literal.
		return strings.Trim(entry, "[]"), defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in %q", portStr, entry)
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in %q", entry)
	}
	return host, port, nil
}

// ParseHosts reads one host per line, skipping blank lines and # comments.
func ParseHosts(r io.Reader) ([]string, error) {
	var hosts []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading hosts: %v", audit.ErrIO, err)
	}
	return hosts, nil
}
