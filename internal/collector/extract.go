package collector

import (
	"encoding/json"
	"log/slog"
	"net/netip"
	"time"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/model"
)

// extractHosts turns host hits into forward and reverse DNS records.
// Names that fail validation are skipped and counted.
func extractHosts(hits []json.RawMessage, logger *slog.Logger) ([]model.DomainRecord, int) {
	var (
		records []model.DomainRecord
		skipped int
	)
	for _, raw := range hits {
		var hit api.HostHit
		if err := json.Unmarshal(raw, &hit); err != nil {
			logger.Warn("skipping malformed host hit", "error", err)
			skipped++
			continue
		}
		addr := hit.IP
		if _, err := netip.ParseAddr(addr); err != nil {
			addr = ""
		}
		observed, _ := api.ParseTimestamp(hit.LastUpdatedAt)

		for _, name := range hit.DNS.Names {
			if rec, ok := buildRecord(name, model.SourceForwardDNS, addr, observed, logger); ok {
				records = append(records, rec)
			} else {
				skipped++
			}
		}
		for _, name := range hit.DNS.ReverseDNS.Names {
			if rec, ok := buildRecord(name, model.SourceReverseDNS, addr, observed, logger); ok {
				records = append(records, rec)
			} else {
				skipped++
			}
		}
	}
	return records, skipped
}

// extractCertificates turns certificate hits into certificate records.
func extractCertificates(hits []json.RawMessage, logger *slog.Logger) ([]model.DomainRecord, int) {
	var (
		records []model.DomainRecord
		skipped int
	)
	for _, raw := range hits {
		var hit api.CertificateHit
		if err := json.Unmarshal(raw, &hit); err != nil {
			logger.Warn("skipping malformed certificate hit", "error", err)
			skipped++
			continue
		}
		observed, _ := api.ParseTimestamp(hit.AddedAt)
		for _, name := range hit.Names {
			if rec, ok := buildRecord(name, model.SourceCertificate, "", observed, logger); ok {
				records = append(records, rec)
			} else {
				skipped++
			}
		}
	}
	return records, skipped
}

func buildRecord(name string, src model.Source, addr string, observed time.Time, logger *slog.Logger) (model.DomainRecord, bool) {
	rec, err := model.NewDomainRecord(name, src, addr, observed)
	if err != nil {
		logger.Warn("skipping invalid name", "name", name, "source", src, "error", err)
		return model.DomainRecord{}, false
	}
	return rec, true
}
