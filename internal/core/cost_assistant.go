package core

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
)

// SupplierInvoice is a parsed supplier invoice document. Ancillary costs
// (freight, customs, handling) are invoice-level amounts that the cost
// assistant prorates across the goods lines.
type SupplierInvoice struct {
	XMLName   xml.Name        `xml:"invoice"`
	Number    string          `xml:"number,attr"`
	Supplier  string          `xml:"supplier,attr"`
	Date      string          `xml:"date,attr"`
	Currency  string          `xml:"currency,attr"`
	Lines     []InvoiceLine   `xml:"line"`
	Ancillary []AncillaryCost `xml:"ancillary"`
}

// InvoiceLine is one goods line of a supplier invoice.
type InvoiceLine struct {
	Number      int             `xml:"number,attr"`
	ProductCode string          `xml:"productCode"`
	Description string          `xml:"description"`
	Quantity    decimal.Decimal `xml:"quantity"`
	UnitPrice   decimal.Decimal `xml:"unitPrice"`
}

// Total returns the goods value of the line.
func (l InvoiceLine) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// AncillaryCost is one invoice-level cost to be spread over the lines.
type AncillaryCost struct {
	Kind   string          `xml:"kind,attr"`
	Amount decimal.Decimal `xml:"amount,attr"`
}

// CostAllocation is the prorated result for one invoice line.
type CostAllocation struct {
	LineNumber     int             `json:"line_number"`
	ProductCode    string          `json:"product_code"`
	GoodsValue     decimal.Decimal `json:"goods_value"`
	AncillaryShare decimal.Decimal `json:"ancillary_share"`
	LoadedValue    decimal.Decimal `json:"loaded_value"`
	LoadedUnitCost decimal.Decimal `json:"loaded_unit_cost"`
}

// ParseSupplierInvoice decodes a supplier invoice XML document and
// validates the fields the proration depends on.
func ParseSupplierInvoice(r io.Reader) (*SupplierInvoice, error) {
	var inv SupplierInvoice
	if err := xml.NewDecoder(r).Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse invoice XML: %w", err)
	}
	if len(inv.Lines) == 0 {
		return nil, fmt.Errorf("invoice %s has no goods lines", inv.Number)
	}
	for _, l := range inv.Lines {
		if l.Quantity.IsNegative() || l.Quantity.IsZero() {
			return nil, fmt.Errorf("invoice %s line %d: quantity must be positive", inv.Number, l.Number)
		}
		if l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("invoice %s line %d: unit price cannot be negative", inv.Number, l.Number)
		}
	}
	for _, a := range inv.Ancillary {
		if a.Amount.IsNegative() {
			return nil, fmt.Errorf("invoice %s: ancillary cost %q cannot be negative", inv.Number, a.Kind)
		}
		if !a.Amount.Equal(a.Amount.Round(2)) {
			return nil, fmt.Errorf("invoice %s: ancillary cost %q has sub-cent precision", inv.Number, a.Kind)
		}
	}
	return &inv, nil
}

// AncillaryTotal sums the invoice-level costs.
func (inv *SupplierInvoice) AncillaryTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range inv.Ancillary {
		total = total.Add(a.Amount)
	}
	return total
}

// ProrateAncillary spreads the invoice's ancillary total across its lines
// proportionally to goods value, in cents, using largest-remainder
// rounding so the shares always sum exactly to the ancillary total. The
// allocation is deterministic: remainder cents go to the lines with the
// largest fractional part, ties broken by line order.
func ProrateAncillary(inv *SupplierInvoice) ([]CostAllocation, error) {
	goodsTotal := decimal.Zero
	for _, l := range inv.Lines {
		goodsTotal = goodsTotal.Add(l.Total())
	}
	if goodsTotal.IsZero() {
		return nil, fmt.Errorf("invoice %s: goods total is zero, nothing to prorate against", inv.Number)
	}

	ancillary := inv.AncillaryTotal()
	allocations := make([]CostAllocation, len(inv.Lines))

	type remainder struct {
		index int
		frac  decimal.Decimal
	}
	remainders := make([]remainder, len(inv.Lines))

	distributed := decimal.Zero
	for i, l := range inv.Lines {
		value := l.Total()
		raw := ancillary.Mul(value).Div(goodsTotal)
		share := raw.RoundDown(2)
		distributed = distributed.Add(share)
		remainders[i] = remainder{index: i, frac: raw.Sub(share)}
		allocations[i] = CostAllocation{
			LineNumber:     l.Number,
			ProductCode:    l.ProductCode,
			GoodsValue:     value,
			AncillaryShare: share,
		}
	}

	// Hand out the leftover cents, largest fractional part first.
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac.GreaterThan(remainders[j].frac)
	})
	cent := decimal.New(1, -2)
	leftover := ancillary.Sub(distributed)
	for i := 0; leftover.GreaterThanOrEqual(cent); i = (i + 1) % len(remainders) {
		idx := remainders[i].index
		allocations[idx].AncillaryShare = allocations[idx].AncillaryShare.Add(cent)
		leftover = leftover.Sub(cent)
	}
	// A sub-cent residue only occurs for ancillary amounts below cent
	// precision; it goes to the largest-remainder line in full.
	if leftover.IsPositive() {
		idx := remainders[0].index
		allocations[idx].AncillaryShare = allocations[idx].AncillaryShare.Add(leftover)
	}

	for i := range allocations {
		line := inv.Lines[i]
		allocations[i].LoadedValue = allocations[i].GoodsValue.Add(allocations[i].AncillaryShare)
		allocations[i].LoadedUnitCost = allocations[i].LoadedValue.Div(line.Quantity).Round(4)
	}
	return allocations, nil
}
