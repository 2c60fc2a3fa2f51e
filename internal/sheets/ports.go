// Package sheets mirrors the credit audit trail to a spreadsheet.
package sheets

import (
	"context"
	"time"

	"creditos/internal/storage"
)

// AuditWriter appends one audit entry as a spreadsheet row.
type AuditWriter interface {
	AppendAuditRow(ctx context.Context, e storage.AuditEntry) (rowRef string, err error)
}

// Header is the first row of the audit sheet.
var Header = []any{"timestamp", "evento", "id", "cliente", "monto", "tasa_interes", "plazo", "fecha_otorgamiento"}

// AuditRow lays out e in Header order.
func AuditRow(e storage.AuditEntry) []any {
	return []any{
		e.OccurredAt.UTC().Format(time.RFC3339),
		e.Event,
		e.CreditID.String(),
		e.Fields.Cliente,
		e.Fields.Monto,
		e.Fields.TasaInteres,
		e.Fields.Plazo,
		e.Fields.FechaOtorgamiento,
	}
}
