package web

import (
	"net/http"
)

// prorateInvoice handles POST /api/cost-assistant/prorate. The body is the
// supplier invoice XML document; the response carries the invoice header and
// the per-line loaded costs.
func (h *Handler) prorateInvoice(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ProrateInvoice(r.Context(), r.Body)
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	type response struct {
		InvoiceNumber string `json:"invoice_number"`
		Supplier      string `json:"supplier"`
		Currency      string `json:"currency"`
		Allocations   any    `json:"allocations"`
	}
	writeJSON(w, response{
		InvoiceNumber: result.Invoice.Number,
		Supplier:      result.Invoice.Supplier,
		Currency:      result.Invoice.Currency,
		Allocations:   result.Allocations,
	})
}
