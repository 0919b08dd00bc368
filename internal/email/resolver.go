package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// IMAP hosts of common providers
var knownIMAPServers = map[string]string{
	"gmail.com":      "imap.gmail.com",
	"googlemail.com": "imap.gmail.com",
	"outlook.com":    "outlook.office365.com",
	"hotmail.com":    "outlook.office365.com",
	"live.com":       "outlook.office365.com",
	"yahoo.com":      "imap.mail.yahoo.com",
	"icloud.com":     "imap.mail.me.com",
	"zoho.com":       "imap.zoho.com",
	"zoho.eu":        "imap.zoho.eu",
	"zohomail.eu":    "imap.zoho.eu",
	"fastmail.com":   "imap.fastmail.com",
	"gmx.de":         "imap.gmx.net",
	"gmx.net":        "imap.gmx.net",
	"web.de":         "imap.web.de",
	"t-online.de":    "secureimap.t-online.de",
	"ionos.de":       "imap.ionos.de",
	"strato.de":      "imap.strato.de",
}

// Resolver finds the IMAP host for a mailbox when none is configured
type Resolver struct {
	// Probe reports whether host:port accepts TCP connections
	Probe func(ctx context.Context, host string, port int) bool
	// LookupMX returns MX records for a domain
	LookupMX func(ctx context.Context, domain string) ([]*net.MX, error)
}

// NewResolver creates a resolver using the network
func NewResolver() *Resolver {
	return &Resolver{
		Probe:    probeTCP,
		LookupMX: net.DefaultResolver.LookupMX,
	}
}

// ResolveIMAPServer determines the IMAP host for an email address:
// known providers first, then imap./mail. prefixes, then the MX host's
// domain, then imap.<domain> unprobed.
func (r *Resolver) ResolveIMAPServer(ctx context.Context, email string, port int) (string, error) {
	domain := GetDomainFromEmail(email)
	if domain == "" {
		return "", fmt.Errorf("invalid email format: %q", email)
	}

	if host, ok := knownIMAPServers[domain]; ok {
		return host, nil
	}

	for _, host := range []string{"imap." + domain, "mail." + domain, domain} {
		if r.Probe(ctx, host, port) {
			return host, nil
		}
	}

	if host := r.resolveViaMX(ctx, domain, port); host != "" {
		return host, nil
	}

	return "imap." + domain, nil
}

// resolveViaMX derives imap./mail. hosts from the primary MX record,
// e.g. mx.example.com -> imap.example.com
func (r *Resolver) resolveViaMX(ctx context.Context, domain string, port int) string {
	mxRecords, err := r.LookupMX(ctx, domain)
	if err != nil || len(mxRecords) == 0 {
		return ""
	}

	mxHost := strings.TrimSuffix(mxRecords[0].Host, ".")
	_, base, ok := strings.Cut(mxHost, ".")
	if !ok || !strings.Contains(base, ".") {
		return ""
	}

	for _, host := range []string{"imap." + base, "mail." + base} {
		if r.Probe(ctx, host, port) {
			return host
		}
	}
	return ""
}

func probeTCP(ctx context.Context, host string, port int) bool {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// GetDomainFromEmail extracts the lower-cased domain from an email address
func GetDomainFromEmail(email string) string {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}
