// Package processor merges the raw records of one collection run into a
// unique, scoped, sorted domain list.
package processor

import (
	"sort"
	"time"

	"censys-toolkit/internal/model"
)

type Options struct {
	// CollapseWildcards folds *.x into x.
	CollapseWildcards bool
	Now               func() time.Time
}

type Stats struct {
	Input    int
	Total    int
	Concrete int
	Wildcard int
	// BySource counts each single origin; a record with two origins counts in both.
	BySource          map[model.Source]int
	DNSAndCertificate int
	OutOfScope        int
	Stale             int
}

type Result struct {
	Query       model.CollectionQuery
	Records     []model.DomainRecord
	Stats       Stats
	GeneratedAt time.Time
}

// Names returns the record names in order.
func (r Result) Names() []string {
	names := make([]string, len(r.Records))
	for i, rec := range r.Records {
		names[i] = rec.Name
	}
	return names
}

// Dedup filters and merges records collected for q.
func Dedup(q model.CollectionQuery, records []model.DomainRecord, opts Options) Result {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	generated := now().UTC()
	cutoff := q.Freshness.Cutoff(generated)

	stats := Stats{Input: len(records), BySource: make(map[model.Source]int)}
	byName := make(map[string]*model.DomainRecord, len(records))

	for _, rec := range records {
		if !model.InScope(rec.Name, q.Domain) {
			stats.OutOfScope++
			continue
		}
		if !cutoff.IsZero() && !rec.ObservedAt.IsZero() && rec.ObservedAt.Before(cutoff) {
			stats.Stale++
			continue
		}

		name := rec.Name
		if opts.CollapseWildcards {
			// A wildcard above the target covers it but its base is not in scope.
			if base := model.WildcardBase(name); model.InScope(base, q.Domain) {
				name = base
			}
		}

		existing, ok := byName[name]
		if !ok {
			merged := rec
			merged.Name = name
			byName[name] = &merged
			continue
		}
		existing.Sources |= rec.Sources
		if existing.ResolvedAddress == "" {
			existing.ResolvedAddress = rec.ResolvedAddress
		}
		if rec.ObservedAt.After(existing.ObservedAt) {
			existing.ObservedAt = rec.ObservedAt
		}
	}

	out := make([]model.DomainRecord, 0, len(byName))
	for _, rec := range byName {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	for _, rec := range out {
		if rec.IsWildcard() {
			stats.Wildcard++
		} else {
			stats.Concrete++
		}
		for _, src := range rec.Sources.Split() {
			stats.BySource[src]++
		}
		if rec.Sources&model.SourceDNS != 0 && rec.Sources.Has(model.SourceCertificate) {
			stats.DNSAndCertificate++
		}
	}
	stats.Total = len(out)

	return Result{Query: q, Records: out, Stats: stats, GeneratedAt: generated}
}
