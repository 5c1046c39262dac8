package tax

import (
	"errors"
	"fmt"

	"github.com/rezonia/nfe-processor/internal/model"
)

// ErrNoRecipient is returned when a document has no dest block to tax
var ErrNoRecipient = errors.New("document has no recipient")

// ExtractDIFALInput builds a DIFAL request from a parsed document.
//
// The operation value is vNF, falling back to vProd when vNF is zero. The
// interstate rate follows the ICMS origin of the first line; the destination
// rates come from table.
func ExtractDIFALInput(doc *model.FiscalDocument, table *RateTable, methodology Methodology) (DifalInput, error) {
	if doc.Recipient == nil {
		return DifalInput{}, ErrNoRecipient
	}
	if table == nil {
		table = DefaultRateTable()
	}

	origin := doc.IssuerState()
	dest := doc.RecipientState()

	imported := false
	if len(doc.LineItems) > 0 {
		imported = doc.LineItems[0].Taxes.ICMS.Imported()
	}

	interstate, err := table.InterstateRate(origin, dest, imported)
	if err != nil {
		return DifalInput{}, fmt.Errorf("interstate rate: %w", err)
	}

	destRate, _ := table.State(dest)

	value := doc.Totals.GrandTotal
	if value.IsZero() {
		value = doc.Totals.ProductTotal
	}

	return DifalInput{
		OperationValue:          value.InexactFloat64(),
		OriginState:             origin,
		DestinationState:        dest,
		InterstateRate:          interstate,
		DestinationInternalRate: destRate.Internal,
		FCPRate:                 destRate.FCP,
		Methodology:             methodology,
	}, nil
}
