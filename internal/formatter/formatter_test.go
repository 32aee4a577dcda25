package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"censys-toolkit/internal/model"
	"censys-toolkit/internal/processor"
)

func sampleResult() processor.Result {
	q := model.CollectionQuery{Domain: "example.com", DataType: model.DataTypeBoth, Freshness: model.FreshnessAll, PageSize: 50, MaxPages: -1}
	records := []model.DomainRecord{
		{Name: "www.example.com", Sources: model.SourceForwardDNS, ResolvedAddress: "192.0.2.1", ObservedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "*.example.com", Sources: model.SourceCertificate},
		{Name: "api.example.com", Sources: model.SourceForwardDNS},
		{Name: "api.example.com", Sources: model.SourceCertificate},
	}
	return processor.Dedup(q, records, processor.Options{Now: func() time.Time {
		return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	}})
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Format(&buf, sampleResult(), KindJSON); err != nil {
		t.Fatalf("Format: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if doc.Query.Domain != "example.com" || doc.Query.DataType != "both" || doc.Query.Days != "all" {
		t.Fatalf("query = %+v", doc.Query)
	}
	if doc.Summary.Total != 3 || doc.Summary.Wildcard != 1 || doc.Summary.DNSAndCertificate != 1 {
		t.Fatalf("summary = %+v", doc.Summary)
	}
	for _, key := range []string{"forward-dns", "reverse-dns", "certificate"} {
		group, ok := doc.Records[key]
		if !ok {
			t.Fatalf("records missing %q group", key)
		}
		if doc.Summary.BySource[key] != len(group) {
			t.Fatalf("by_source[%s] = %d; group has %d", key, doc.Summary.BySource[key], len(group))
		}
	}
	if len(doc.Records["certificate"]) != 2 || len(doc.Records["forward-dns"]) != 2 {
		t.Fatalf("records = %+v", doc.Records)
	}
	if !strings.Contains(buf.String(), `"reverse-dns": []`) {
		t.Fatalf("empty groups must be arrays:\n%s", buf.String())
	}

	www := doc.Records["forward-dns"][1]
	if www.Name != "www.example.com" || www.ResolvedAddress != "192.0.2.1" || www.ObservedAt == nil {
		t.Fatalf("www entry = %+v", www)
	}
	wildcard := doc.Records["certificate"][0]
	if wildcard.Name != "*.example.com" || !wildcard.Wildcard || wildcard.ObservedAt != nil {
		t.Fatalf("wildcard entry = %+v", wildcard)
	}
}

func TestFormatText(t *testing.T) {
	var buf bytes.Buffer
	if err := Format(&buf, sampleResult(), KindText); err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "*.example.com\napi.example.com\nwww.example.com\n"
	if buf.String() != want {
		t.Fatalf("text output = %q; want %q", buf.String(), want)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"json": KindJSON, "JSON": KindJSON, "text": KindText, "txt": KindText} {
		if got, err := ParseKind(in); err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	var cfgErr *model.ConfigurationError
	if _, err := ParseKind("xml"); !errors.As(err, &cfgErr) {
		t.Fatalf("ParseKind(xml) error = %v; want *model.ConfigurationError", err)
	}
}

func TestReadNamesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Format(&buf, sampleResult(), KindJSON); err != nil {
		t.Fatal(err)
	}
	names, err := ReadNames(&buf)
	if err != nil {
		t.Fatalf("ReadNames: %v", err)
	}
	want := []string{"api.example.com", "www.example.com", "*.example.com"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v; want %v", names, want)
	}
}

func TestReadNamesArray(t *testing.T) {
	names, err := ReadNames(strings.NewReader(` ["a.example.com", "b.example.com", "a.example.com"] `))
	if err != nil {
		t.Fatalf("ReadNames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a.example.com", "b.example.com"}) {
		t.Fatalf("names = %v", names)
	}
	if _, err := ReadNames(strings.NewReader(`{"query":{}}`)); err == nil {
		t.Fatal("expected error for document without records")
	}
}

func TestSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	Summary(&buf, sampleResult(), 2)
	out := buf.String()
	for _, want := range []string{"Results for example.com", "Unique domains:", "certificate:", "*.example.com [certificate]", "... and 1 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "www.example.com") {
		t.Errorf("summary should list at most 2 domains:\n%s", out)
	}
}
