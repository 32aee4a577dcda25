// Package formatter renders a deduplicated result as JSON or plain text.
package formatter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"censys-toolkit/internal/model"
	"censys-toolkit/internal/processor"
)

type Kind string

const (
	KindJSON Kind = "json"
	KindText Kind = "text"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindJSON, KindText:
		return k, nil
	case "txt":
		return KindText, nil
	}
	return "", &model.ConfigurationError{Setting: "output format", Value: s, Reason: "choose json or text"}
}

// Document is the JSON output layout.
type Document struct {
	Query       QueryInfo          `json:"query"`
	GeneratedAt time.Time          `json:"generated_at"`
	Summary     SummaryInfo        `json:"summary"`
	Records     map[string][]Entry `json:"records"`
}

type QueryInfo struct {
	Domain   string `json:"domain"`
	DataType string `json:"data_type"`
	Days     string `json:"days"`
}

type SummaryInfo struct {
	Total             int            `json:"total"`
	Concrete          int            `json:"concrete"`
	Wildcard          int            `json:"wildcard"`
	BySource          map[string]int `json:"by_source"`
	DNSAndCertificate int            `json:"dns_and_certificate"`
}

type Entry struct {
	Name            string     `json:"name"`
	Sources         []string   `json:"sources"`
	ResolvedAddress string     `json:"resolved_address,omitempty"`
	ObservedAt      *time.Time `json:"observed_at,omitempty"`
	Wildcard        bool       `json:"wildcard"`
}

// NewDocument groups records by source. A record with several sources
// appears in each of its groups; every group key is always present.
func NewDocument(res processor.Result) Document {
	doc := Document{
		Query: QueryInfo{
			Domain:   res.Query.Domain,
			DataType: string(res.Query.DataType),
			Days:     res.Query.Freshness.String(),
		},
		GeneratedAt: res.GeneratedAt,
		Summary: SummaryInfo{
			Total:             res.Stats.Total,
			Concrete:          res.Stats.Concrete,
			Wildcard:          res.Stats.Wildcard,
			BySource:          make(map[string]int, len(model.AllSources)),
			DNSAndCertificate: res.Stats.DNSAndCertificate,
		},
		Records: make(map[string][]Entry, len(model.AllSources)),
	}
	for _, src := range model.AllSources {
		doc.Records[src.String()] = []Entry{}
	}

	for _, rec := range res.Records {
		entry := Entry{
			Name:            rec.Name,
			Sources:         rec.Sources.Names(),
			ResolvedAddress: rec.ResolvedAddress,
			Wildcard:        rec.IsWildcard(),
		}
		if !rec.ObservedAt.IsZero() {
			observed := rec.ObservedAt.UTC()
			entry.ObservedAt = &observed
		}
		for _, src := range rec.Sources.Split() {
			doc.Records[src.String()] = append(doc.Records[src.String()], entry)
		}
	}
	for _, src := range model.AllSources {
		doc.Summary.BySource[src.String()] = len(doc.Records[src.String()])
	}
	return doc
}

// Format writes res to w. It does not filter.
func Format(w io.Writer, res processor.Result, kind Kind) error {
	switch kind {
	case KindJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(res))
	case KindText:
		names := res.Names()
		sort.Strings(names)
		bw := bufio.NewWriter(w)
		for _, name := range names {
			if _, err := bw.WriteString(name + "\n"); err != nil {
				return err
			}
		}
		return bw.Flush()
	}
	return &model.ConfigurationError{Setting: "output format", Value: string(kind), Reason: "choose json or text"}
}

// ReadNames reads domain names back from a JSON document written by Format,
// or from a plain JSON array of names. Names are returned once, in document order.
func ReadNames(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var names []string
	if bytes.HasPrefix(data, []byte("[")) {
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("decode name list: %w", err)
		}
		return uniq(names), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Records == nil {
		return nil, fmt.Errorf("decode document: no records object")
	}
	keys := make([]string, 0, len(doc.Records))
	for _, src := range model.AllSources {
		keys = append(keys, src.String())
	}
	for key := range doc.Records {
		if _, known := model.ParseSource(key); !known {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		for _, entry := range doc.Records[key] {
			names = append(names, entry.Name)
		}
	}
	return uniq(names), nil
}

func uniq(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
