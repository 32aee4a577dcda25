package model

import (
	"errors"
	"testing"
	"time"
)

func TestNewCollectionQuery(t *testing.T) {
	q, err := NewCollectionQuery("Example.COM.", DataTypeBoth, FreshnessAll, 50, UnboundedPages)
	if err != nil {
		t.Fatalf("NewCollectionQuery returned error: %v", err)
	}
	if q.Domain != "example.com" {
		t.Fatalf("expected normalized domain, got %q", q.Domain)
	}
}

func TestCollectionQueryValidate(t *testing.T) {
	base := CollectionQuery{Domain: "example.com", DataType: DataTypeDNS, PageSize: 100, MaxPages: 1}

	tests := []struct {
		name   string
		mutate func(q *CollectionQuery)
	}{
		{"empty domain", func(q *CollectionQuery) { q.Domain = "" }},
		{"wildcard target", func(q *CollectionQuery) { q.Domain = "*.example.com" }},
		{"public suffix", func(q *CollectionQuery) { q.Domain = "co.uk" }},
		{"unknown data type", func(q *CollectionQuery) { q.DataType = "ptr" }},
		{"unsupported window", func(q *CollectionQuery) { q.Freshness = 5 }},
		{"page size zero", func(q *CollectionQuery) { q.PageSize = 0 }},
		{"page size too big", func(q *CollectionQuery) { q.PageSize = 101 }},
		{"zero pages", func(q *CollectionQuery) { q.MaxPages = 0 }},
		{"negative pages", func(q *CollectionQuery) { q.MaxPages = -2 }},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("base query should be valid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			var cfgErr *ConfigurationError
			if err := q.Validate(); !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v; want *ConfigurationError", err)
			}
		})
	}
}

func TestParseFreshness(t *testing.T) {
	for input, want := range map[string]Freshness{"1": 1, "3": 3, "7": 7, "all": FreshnessAll, "ALL": FreshnessAll, "": FreshnessAll} {
		got, err := ParseFreshness(input)
		if err != nil || got != want {
			t.Errorf("ParseFreshness(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	for _, input := range []string{"2", "30", "-1", "week"} {
		if _, err := ParseFreshness(input); err == nil {
			t.Errorf("ParseFreshness(%q) expected error", input)
		}
	}
}

func TestFreshnessCutoff(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	if got := FreshnessAll.Cutoff(now); !got.IsZero() {
		t.Fatalf("all window should have no cutoff, got %v", got)
	}
	want := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	if got := Freshness(7).Cutoff(now); !got.Equal(want) {
		t.Fatalf("Cutoff(7) = %v; want %v", got, want)
	}
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("Both")
	if err != nil || dt != DataTypeBoth {
		t.Fatalf("ParseDataType(Both) = %v, %v", dt, err)
	}
	if !dt.IncludesDNS() || !dt.IncludesCertificates() {
		t.Fatal("both should include every index")
	}
	if DataTypeDNS.IncludesCertificates() || DataTypeCertificate.IncludesDNS() {
		t.Fatal("single data types should include one index")
	}
	if _, err := ParseDataType("hosts"); err == nil {
		t.Fatal("expected error for unknown data type")
	}
}

func TestNewDomainRecord(t *testing.T) {
	rec, err := NewDomainRecord("WWW.Example.com.", SourceForwardDNS, "192.0.2.10", time.Time{})
	if err != nil {
		t.Fatalf("NewDomainRecord returned error: %v", err)
	}
	if rec.Name != "www.example.com" || rec.ResolvedAddress != "192.0.2.10" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	var vErr *ValidationError
	if _, err := NewDomainRecord("www.example.com", SourceForwardDNS, "not-an-ip", time.Time{}); !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError for bad address, got %v", err)
	}
	if _, err := NewDomainRecord("www.example.com", 0, "", time.Time{}); !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError for missing source, got %v", err)
	}
}

func TestSourceNames(t *testing.T) {
	s := SourceCertificate | SourceForwardDNS
	names := s.Names()
	if len(names) != 2 || names[0] != "forward-dns" || names[1] != "certificate" {
		t.Fatalf("unexpected names: %v", names)
	}
	if s.String() != "forward-dns+certificate" {
		t.Fatalf("unexpected String(): %q", s.String())
	}
	if !SourceDNS.Has(SourceReverseDNS) || s.Has(SourceReverseDNS) {
		t.Fatal("Has misreported membership")
	}
	if src, ok := ParseSource("reverse-dns"); !ok || src != SourceReverseDNS {
		t.Fatalf("ParseSource(reverse-dns) = %v, %v", src, ok)
	}
}
