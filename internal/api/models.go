package api

import (
	"encoding/json"
	"strings"
	"time"
)

// Index names a Censys search index.
type Index string

const (
	IndexHosts        Index = "hosts"
	IndexCertificates Index = "certificates"
)

type SearchRequest struct {
	Query   string   `json:"q"`
	PerPage int      `json:"per_page"`
	Cursor  string   `json:"cursor,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// SearchPage is one page of hits. Next is empty on the last page.
type SearchPage struct {
	Total int               `json:"total"`
	Hits  []json.RawMessage `json:"hits"`
	Next  string            `json:"next,omitempty"`
}

// searchEnvelope matches the v2 search response:
// { "code": 200, "status": "OK", "result": { "total": 45, "hits": [...], "links": {...} } }
type searchEnvelope struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Result struct {
		Query string            `json:"query"`
		Total int               `json:"total"`
		Hits  []json.RawMessage `json:"hits"`
		Links struct {
			Prev string `json:"prev"`
			Next string `json:"next"`
		} `json:"links"`
	} `json:"result"`
}

type errorBody struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HostHit holds the host fields requested by the DNS query.
type HostHit struct {
	IP  string `json:"ip"`
	DNS struct {
		Names      []string `json:"names"`
		ReverseDNS struct {
			Names []string `json:"names"`
		} `json:"reverse_dns"`
	} `json:"dns"`
	LastUpdatedAt string `json:"last_updated_at"`
}

// CertificateHit holds the certificate fields requested by the certificate query.
type CertificateHit struct {
	Names   []string `json:"names"`
	AddedAt string   `json:"added_at"`
}

type Account struct {
	Email string `json:"email"`
	Login string `json:"login"`
	Quota struct {
		Used      int    `json:"used"`
		Allowance int    `json:"allowance"`
		ResetsAt  string `json:"resets_at"`
	} `json:"quota"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp parses the timestamp formats the service returns.
// It returns the zero time and false for empty or unrecognised values.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
