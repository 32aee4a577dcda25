package model

import (
	"net/netip"
	"strings"
	"time"
)

// Source is a set of record origins. Single origins are the Source* constants;
// a record seen through several origins carries their union.
type Source uint8

const (
	SourceForwardDNS Source = 1 << iota
	SourceReverseDNS
	SourceCertificate

	SourceDNS = SourceForwardDNS | SourceReverseDNS
)

// AllSources lists the single origins in canonical order.
var AllSources = []Source{SourceForwardDNS, SourceReverseDNS, SourceCertificate}

var sourceNames = map[Source]string{
	SourceForwardDNS:  "forward-dns",
	SourceReverseDNS:  "reverse-dns",
	SourceCertificate: "certificate",
}

// ParseSource maps a single origin name back to its Source.
func ParseSource(s string) (Source, bool) {
	for src, name := range sourceNames {
		if name == s {
			return src, true
		}
	}
	return 0, false
}

// Has reports whether every origin in other is present in s.
func (s Source) Has(other Source) bool {
	return other != 0 && s&other == other
}

// Split returns the single origins contained in s, in canonical order.
func (s Source) Split() []Source {
	var out []Source
	for _, src := range AllSources {
		if s.Has(src) {
			out = append(out, src)
		}
	}
	return out
}

// Names returns the origin names contained in s, in canonical order.
func (s Source) Names() []string {
	parts := s.Split()
	names := make([]string, 0, len(parts))
	for _, src := range parts {
		names = append(names, sourceNames[src])
	}
	return names
}

func (s Source) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Names(), "+")
}

// DomainRecord is one observation of a domain name.
type DomainRecord struct {
	Name            string
	Sources         Source
	ResolvedAddress string
	// ObservedAt is the zero time when the service did not report one.
	ObservedAt time.Time
}

// NewDomainRecord normalizes name and validates the record.
func NewDomainRecord(name string, src Source, addr string, observedAt time.Time) (DomainRecord, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return DomainRecord{}, err
	}
	if src == 0 {
		return DomainRecord{}, &ValidationError{Field: "source", Value: name, Reason: "record has no source"}
	}
	if addr != "" {
		ip, err := netip.ParseAddr(strings.TrimSpace(addr))
		if err != nil {
			return DomainRecord{}, &ValidationError{Field: "address", Value: addr, Reason: "not an IP address"}
		}
		addr = ip.String()
	}
	return DomainRecord{
		Name:            normalized,
		Sources:         src,
		ResolvedAddress: addr,
		ObservedAt:      observedAt,
	}, nil
}

func (r DomainRecord) IsWildcard() bool {
	return IsWildcard(r.Name)
}
