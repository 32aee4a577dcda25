package api

import (
	"fmt"
	"time"
)

var (
	HostFields        = []string{"ip", "dns.names", "dns.reverse_dns.names", "last_updated_at"}
	CertificateFields = []string{"names", "added_at"}
)

// DateFilter renders a Censys range filter starting at cutoff, e.g. "[2024-01-15 TO *]".
// A zero cutoff means no filter.
func DateFilter(cutoff time.Time) string {
	if cutoff.IsZero() {
		return ""
	}
	return fmt.Sprintf("[%s TO *]", cutoff.UTC().Format("2006-01-02"))
}

// BuildDNSQuery matches the domain in forward and reverse DNS names of hosts.
func BuildDNSQuery(domain string, cutoff time.Time) (string, []string) {
	query := fmt.Sprintf("(dns.names: %s or dns.reverse_dns.names: %s)", domain, domain)
	if filter := DateFilter(cutoff); filter != "" {
		query = fmt.Sprintf("(%s) and last_updated_at:%s", query, filter)
	}
	return query, HostFields
}

// BuildCertificateQuery matches the domain in certificate names.
func BuildCertificateQuery(domain string, cutoff time.Time) (string, []string) {
	query := "names: " + domain
	if filter := DateFilter(cutoff); filter != "" {
		query = fmt.Sprintf("(%s) and added_at:%s", query, filter)
	}
	return query, CertificateFields
}
