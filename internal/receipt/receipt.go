package receipt

import (
	"context"
	"fmt"
	"strings"

	"modern-pos/internal/domain"

	"go.uber.org/zap"
)

// ESC/POS control sequences understood by the thermal printers the store
// fleet uses.
const (
	escInit        = "\x1B\x40"
	escAlignCenter = "\x1B\x61\x01"
	escAlignLeft   = "\x1B\x61\x00"
	escFeedFour    = "\x1B\x64\x04"
	escCut         = "\x1B\x69"

	divider = "================================\n"
)

// Format renders a committed sale as an ESC/POS receipt document
func Format(sale *domain.Sale) string {
	var b strings.Builder

	b.WriteString(escInit)
	b.WriteString(escAlignCenter)
	b.WriteString("Modern POS System\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "Date: %s\n\n", sale.CreatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(escAlignLeft)

	for _, item := range sale.Items {
		fmt.Fprintf(&b, "%s\n  %d x $%.2f  $%.2f\n",
			item.ProductName, item.Quantity, item.Price, float64(item.Quantity)*item.Price)
	}

	b.WriteString("\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "TOTAL: $%.2f\n\n", sale.Total)
	b.WriteString(escAlignCenter)
	b.WriteString("Thank you for your purchase!\n\n\n\n")
	b.WriteString(escFeedFour)
	b.WriteString(escCut)

	return b.String()
}

// Printer consumes a formatted receipt document. Implementations own their
// failure mode; a failed print must never block or undo the sale it
// describes.
type Printer interface {
	Print(ctx context.Context, document string) error
}

// LogPrinter writes receipts to the log. It stands in for hardware
// integration, which lives outside this service.
type LogPrinter struct {
	logger *zap.Logger
}

// NewLogPrinter creates a Printer that logs each document
func NewLogPrinter(logger *zap.Logger) *LogPrinter {
	return &LogPrinter{logger: logger}
}

// Print logs the receipt document
func (p *LogPrinter) Print(_ context.Context, document string) error {
	p.logger.Info("Receipt ready", zap.Int("bytes", len(document)))
	return nil
}
