package folio

import (
	"fmt"

	"github.com/foliotrack/folio/date"
)

// WarningKind classifies a data-quality gap encountered during recomputation.
type WarningKind string

const (
	// WarnMissingPrice flags a held security with no usable quote on or
	// before a valuation date; its contribution to floating equity was zero.
	WarnMissingPrice WarningKind = "missing-price"
	// WarnMissingRate flags a currency conversion that fell back to the
	// identity factor because no rate could be resolved.
	WarnMissingRate WarningKind = "missing-rate"
)

// Warning records one degraded-but-not-fatal data gap. Recomputation never
// aborts on a gap; it accumulates warnings so callers can surface them.
type Warning struct {
	Kind    WarningKind
	Date    date.Date
	Subject string // security code or currency pair concerned
	Detail  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s on %s: %s", w.Kind, w.Subject, w.Date, w.Detail)
}

// Warnings is the data-quality signal returned alongside recompute results.
type Warnings []Warning

func (ws *Warnings) add(kind WarningKind, on date.Date, subject, format string, args ...any) {
	*ws = append(*ws, Warning{Kind: kind, Date: on, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

// Merge appends all warnings from other.
func (ws *Warnings) Merge(other Warnings) {
	*ws = append(*ws, other...)
}
