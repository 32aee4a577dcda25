package formatter

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"censys-toolkit/internal/model"
	"censys-toolkit/internal/processor"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	accent  = color.New(color.FgMagenta).SprintFunc()
	muted   = color.New(color.FgHiBlack).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

// Summary prints run statistics and the first limit domains. limit <= 0 lists none.
func Summary(w io.Writer, res processor.Result, limit int) {
	s := res.Stats
	fmt.Fprintf(w, "%s %s (data: %s, days: %s)\n",
		heading("Results for"), accent(res.Query.Domain), res.Query.DataType, res.Query.Freshness)
	fmt.Fprintf(w, "  %-22s %s\n", "Unique domains:", good(s.Total))
	fmt.Fprintf(w, "  %-22s %d\n", "Concrete:", s.Concrete)
	fmt.Fprintf(w, "  %-22s %d\n", "Wildcards:", s.Wildcard)
	for _, src := range model.AllSources {
		fmt.Fprintf(w, "  %-22s %d\n", src.String()+":", s.BySource[src])
	}
	fmt.Fprintf(w, "  %-22s %d\n", "DNS and certificate:", s.DNSAndCertificate)
	if s.OutOfScope > 0 || s.Stale > 0 {
		fmt.Fprintf(w, "  %-22s %s\n", "Dropped:", warn(fmt.Sprintf("%d out of scope, %d stale", s.OutOfScope, s.Stale)))
	}

	if limit <= 0 || len(res.Records) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", heading("Domains"))
	for i, rec := range res.Records {
		if i == limit {
			fmt.Fprintf(w, "  %s\n", muted(fmt.Sprintf("... and %d more", len(res.Records)-limit)))
			break
		}
		line := fmt.Sprintf("  %s %s", rec.Name, muted("["+rec.Sources.String()+"]"))
		if rec.ResolvedAddress != "" {
			line += " " + rec.ResolvedAddress
		}
		fmt.Fprintln(w, line)
	}
}
