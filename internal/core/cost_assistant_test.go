package core_test

import (
	"strings"
	"testing"

	"clic-tools/internal/core"

	"github.com/shopspring/decimal"
)

const sampleInvoice = `
<invoice number="SI-2041" supplier="Steelworks GmbH" date="2026-08-01" currency="EUR">
  <line number="1">
    <productCode>SKU-1001</productCode>
    <description>Hex bolts M8</description>
    <quantity>10</quantity>
    <unitPrice>12.50</unitPrice>
  </line>
  <line number="2">
    <productCode>SKU-2001</productCode>
    <description>Bearing 6204</description>
    <quantity>4</quantity>
    <unitPrice>31.25</unitPrice>
  </line>
  <ancillary kind="freight" amount="30.00"/>
  <ancillary kind="customs" amount="10.01"/>
</invoice>`

func TestParseSupplierInvoice(t *testing.T) {
	inv, err := core.ParseSupplierInvoice(strings.NewReader(sampleInvoice))
	if err != nil {
		t.Fatalf("ParseSupplierInvoice failed: %v", err)
	}
	if inv.Number != "SI-2041" {
		t.Errorf("Expected invoice number SI-2041, got %s", inv.Number)
	}
	if len(inv.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(inv.Lines))
	}
	if !inv.Lines[0].Total().Equal(decimal.NewFromFloat(125)) {
		t.Errorf("Expected line 1 total 125.00, got %s", inv.Lines[0].Total())
	}
	if !inv.AncillaryTotal().Equal(decimal.NewFromFloat(40.01)) {
		t.Errorf("Expected ancillary total 40.01, got %s", inv.AncillaryTotal())
	}
}

func TestParseSupplierInvoice_RejectsZeroQuantity(t *testing.T) {
	bad := `<invoice number="X"><line number="1"><productCode>P</productCode><quantity>0</quantity><unitPrice>1</unitPrice></line></invoice>`
	if _, err := core.ParseSupplierInvoice(strings.NewReader(bad)); err == nil {
		t.Error("Expected error for zero quantity, got nil")
	}
}

func TestParseSupplierInvoice_RejectsNegativeAncillary(t *testing.T) {
	bad := `<invoice number="X"><line number="1"><productCode>P</productCode><quantity>1</quantity><unitPrice>1</unitPrice></line><ancillary kind="freight" amount="-5"/></invoice>`
	if _, err := core.ParseSupplierInvoice(strings.NewReader(bad)); err == nil {
		t.Error("Expected error for negative ancillary cost, got nil")
	}
}

func TestParseSupplierInvoice_RejectsSubCentAncillary(t *testing.T) {
	bad := `<invoice number="X"><line number="1"><productCode>P</productCode><quantity>1</quantity><unitPrice>1</unitPrice></line><ancillary kind="freight" amount="10.005"/></invoice>`
	if _, err := core.ParseSupplierInvoice(strings.NewReader(bad)); err == nil {
		t.Error("Expected error for sub-cent ancillary amount, got nil")
	}
}

func TestProrateAncillary_SharesSumExactly(t *testing.T) {
	inv, err := core.ParseSupplierInvoice(strings.NewReader(sampleInvoice))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	allocations, err := core.ProrateAncillary(inv)
	if err != nil {
		t.Fatalf("ProrateAncillary failed: %v", err)
	}
	if len(allocations) != 2 {
		t.Fatalf("Expected 2 allocations, got %d", len(allocations))
	}

	sum := decimal.Zero
	for _, a := range allocations {
		sum = sum.Add(a.AncillaryShare)
	}
	if !sum.Equal(inv.AncillaryTotal()) {
		t.Errorf("Shares must sum to the ancillary total: expected %s, got %s",
			inv.AncillaryTotal(), sum)
	}
}

func TestProrateAncillary_ProportionalSplit(t *testing.T) {
	// Both lines have goods value 125.00, so an even 40.00 ancillary splits
	// 20.00 / 20.00.
	inv := &core.SupplierInvoice{
		Number: "T1",
		Lines: []core.InvoiceLine{
			{Number: 1, ProductCode: "A", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromFloat(12.5)},
			{Number: 2, ProductCode: "B", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(25)},
		},
		Ancillary: []core.AncillaryCost{{Kind: "freight", Amount: decimal.NewFromInt(40)}},
	}
	allocations, err := core.ProrateAncillary(inv)
	if err != nil {
		t.Fatalf("ProrateAncillary failed: %v", err)
	}
	for _, a := range allocations {
		if !a.AncillaryShare.Equal(decimal.NewFromInt(20)) {
			t.Errorf("Line %d: expected share 20.00, got %s", a.LineNumber, a.AncillaryShare)
		}
		if !a.LoadedValue.Equal(decimal.NewFromInt(145)) {
			t.Errorf("Line %d: expected loaded value 145.00, got %s", a.LineNumber, a.LoadedValue)
		}
	}
	if !allocations[0].LoadedUnitCost.Equal(decimal.NewFromFloat(14.5)) {
		t.Errorf("Line 1: expected loaded unit cost 14.5, got %s", allocations[0].LoadedUnitCost)
	}
	if !allocations[1].LoadedUnitCost.Equal(decimal.NewFromInt(29)) {
		t.Errorf("Line 2: expected loaded unit cost 29, got %s", allocations[1].LoadedUnitCost)
	}
}

func TestProrateAncillary_LeftoverCentGoesToLargestRemainder(t *testing.T) {
	// 0.01 over three equal lines: floor gives 0.00 each, the leftover cent
	// lands on the first line by tie-break.
	inv := &core.SupplierInvoice{
		Number: "T2",
		Lines: []core.InvoiceLine{
			{Number: 1, ProductCode: "A", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
			{Number: 2, ProductCode: "B", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
			{Number: 3, ProductCode: "C", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
		Ancillary: []core.AncillaryCost{{Kind: "handling", Amount: decimal.NewFromFloat(0.01)}},
	}
	allocations, err := core.ProrateAncillary(inv)
	if err != nil {
		t.Fatalf("ProrateAncillary failed: %v", err)
	}
	cent := decimal.NewFromFloat(0.01)
	if !allocations[0].AncillaryShare.Equal(cent) {
		t.Errorf("Expected the cent on line 1, got %s", allocations[0].AncillaryShare)
	}
	for _, a := range allocations[1:] {
		if !a.AncillaryShare.IsZero() {
			t.Errorf("Line %d: expected share 0, got %s", a.LineNumber, a.AncillaryShare)
		}
	}
}

func TestProrateAncillary_SubCentResidueStaysInTotal(t *testing.T) {
	// Two equal 10.00 lines and 10.005 ancillary: each raw share 5.0025
	// floors to 5.00 and the residue is below one cent. It must still end
	// up in a share so the sum matches the total.
	inv := &core.SupplierInvoice{
		Number: "T4",
		Lines: []core.InvoiceLine{
			{Number: 1, ProductCode: "A", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
			{Number: 2, ProductCode: "B", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
		Ancillary: []core.AncillaryCost{{Kind: "freight", Amount: decimal.NewFromFloat(10.005)}},
	}
	allocations, err := core.ProrateAncillary(inv)
	if err != nil {
		t.Fatalf("ProrateAncillary failed: %v", err)
	}
	sum := decimal.Zero
	for _, a := range allocations {
		sum = sum.Add(a.AncillaryShare)
	}
	if !sum.Equal(inv.AncillaryTotal()) {
		t.Errorf("Shares must sum to the ancillary total: expected %s, got %s",
			inv.AncillaryTotal(), sum)
	}
	if !allocations[0].AncillaryShare.Equal(decimal.NewFromFloat(5.005)) {
		t.Errorf("Expected the residue on line 1, got %s", allocations[0].AncillaryShare)
	}
}

func TestProrateAncillary_ZeroGoodsTotalRejected(t *testing.T) {
	inv := &core.SupplierInvoice{
		Number: "T3",
		Lines: []core.InvoiceLine{
			{Number: 1, ProductCode: "A", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero},
		},
		Ancillary: []core.AncillaryCost{{Kind: "freight", Amount: decimal.NewFromInt(10)}},
	}
	if _, err := core.ProrateAncillary(inv); err == nil {
		t.Error("Expected error for zero goods total, got nil")
	}
}

func TestRenderTemplate(t *testing.T) {
	msg := core.RenderTemplate("Rack {code} ({name}) created with {levels} levels.",
		map[string]string{"code": "R03", "name": "Rack 3", "levels": "4"})
	want := "Rack R03 (Rack 3) created with 4 levels."
	if msg != want {
		t.Errorf("Expected %q, got %q", want, msg)
	}
}

func TestRenderTemplate_UnknownPlaceholderStaysVisible(t *testing.T) {
	msg := core.RenderTemplate("Rack {code} in {zone}", map[string]string{"code": "R03"})
	if msg != "Rack R03 in {zone}" {
		t.Errorf("Unknown placeholder must stay visible, got %q", msg)
	}
}
