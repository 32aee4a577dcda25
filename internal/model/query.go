package model

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	MaxPageSize = 100
	// UnboundedPages tells the collector to follow the service until it reports completion.
	UnboundedPages = -1
)

// DataType selects which indexes a collection run queries.
type DataType string

const (
	DataTypeDNS         DataType = "dns"
	DataTypeCertificate DataType = "certificate"
	DataTypeBoth        DataType = "both"
)

func ParseDataType(s string) (DataType, error) {
	switch dt := DataType(strings.ToLower(strings.TrimSpace(s))); dt {
	case DataTypeDNS, DataTypeCertificate, DataTypeBoth:
		return dt, nil
	}
	return "", &ConfigurationError{Setting: "data type", Value: s, Reason: "choose dns, certificate or both"}
}

func (d DataType) IncludesDNS() bool {
	return d == DataTypeDNS || d == DataTypeBoth
}

func (d DataType) IncludesCertificates() bool {
	return d == DataTypeCertificate || d == DataTypeBoth
}

// Freshness is a window in days; FreshnessAll disables filtering.
type Freshness int

const FreshnessAll Freshness = 0

var allowedWindows = map[int]bool{1: true, 3: true, 7: true}

func ParseFreshness(s string) (Freshness, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return FreshnessAll, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || !allowedWindows[days] {
		return 0, &ConfigurationError{Setting: "days", Value: s, Reason: "choose 1, 3, 7 or all"}
	}
	return Freshness(days), nil
}

func (f Freshness) String() string {
	if f == FreshnessAll {
		return "all"
	}
	return strconv.Itoa(int(f))
}

// Cutoff returns the start of the UTC day f days before now, or the zero time
// for FreshnessAll. The service filters on whole days, so the local filter does too.
func (f Freshness) Cutoff(now time.Time) time.Time {
	if f == FreshnessAll {
		return time.Time{}
	}
	y, m, d := now.UTC().AddDate(0, 0, -int(f)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CollectionQuery describes one collection run.
type CollectionQuery struct {
	Domain    string
	DataType  DataType
	Freshness Freshness
	PageSize  int
	MaxPages  int
}

// NewCollectionQuery normalizes the target domain and validates the query.
func NewCollectionQuery(domain string, dataType DataType, freshness Freshness, pageSize, maxPages int) (CollectionQuery, error) {
	q := CollectionQuery{
		Domain:    domain,
		DataType:  dataType,
		Freshness: freshness,
		PageSize:  pageSize,
		MaxPages:  maxPages,
	}
	normalized, err := NormalizeName(domain)
	if err != nil {
		return q, &ConfigurationError{Setting: "domain", Value: domain, Reason: "not a valid domain name"}
	}
	q.Domain = normalized
	return q, q.Validate()
}

// Validate checks the query without touching the network.
func (q CollectionQuery) Validate() error {
	if q.Domain == "" {
		return &ConfigurationError{Setting: "domain", Reason: "a target domain is required"}
	}
	if IsWildcard(q.Domain) {
		return &ConfigurationError{Setting: "domain", Value: q.Domain, Reason: "wildcards are not accepted as a target"}
	}
	if _, err := NormalizeName(q.Domain); err != nil {
		return &ConfigurationError{Setting: "domain", Value: q.Domain, Reason: "not a valid domain name"}
	}
	if suffix, _ := publicsuffix.PublicSuffix(q.Domain); suffix == q.Domain {
		return &ConfigurationError{Setting: "domain", Value: q.Domain, Reason: "target is a public suffix"}
	}
	switch q.DataType {
	case DataTypeDNS, DataTypeCertificate, DataTypeBoth:
	default:
		return &ConfigurationError{Setting: "data type", Value: string(q.DataType), Reason: "choose dns, certificate or both"}
	}
	if q.Freshness != FreshnessAll && !allowedWindows[int(q.Freshness)] {
		return &ConfigurationError{Setting: "days", Value: q.Freshness.String(), Reason: "choose 1, 3, 7 or all"}
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return &ConfigurationError{Setting: "page size", Value: strconv.Itoa(q.PageSize), Reason: "must be between 1 and 100"}
	}
	if q.MaxPages != UnboundedPages && q.MaxPages < 1 {
		return &ConfigurationError{Setting: "max pages", Value: strconv.Itoa(q.MaxPages), Reason: "use -1 for all pages or a positive count"}
	}
	return nil
}
