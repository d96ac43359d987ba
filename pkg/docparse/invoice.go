// Package docparse holds best-effort parsers for free-form document text.
// Parsers never fail; fields they cannot locate are reported in Unparsed.
package docparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Defaults reported when a field cannot be located.
const (
	UnknownInvoiceNumber = "N/A"
	DefaultCurrency      = "USD"
)

// Field names reported in Invoice.Unparsed.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldTotalAmount   = "total_amount"
	FieldCurrency      = "currency"
	FieldLineItems     = "line_items"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)Invoice N[o#]?:\s*([A-Za-z0-9-]+)`)
	totalPattern         = regexp.MustCompile(`(?i)(?:Total|Grand Total):\s*[$€£]?\s*([\d,.]+)`)
	currencyPattern      = regexp.MustCompile(`(?:Total|Grand Total):\s*([$€£])`)
	lineItemPattern      = regexp.MustCompile(`([\w\s]+?)\s+(\d+)\s+([\d.]+)\s+([\d.]+)`)
)

// LineItem is a single "description quantity unit_price line_total" row.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Invoice holds the fields recovered from invoice text.
type Invoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	TotalAmount   float64    `json:"total_amount"`
	Currency      string     `json:"currency"`
	LineItems     []LineItem `json:"line_items"`
	Unparsed      []string   `json:"unparsed,omitempty"`
}

// ParseInvoice extracts invoice number, total, currency symbol, and line items.
func ParseInvoice(text string) Invoice {
	inv := Invoice{
		InvoiceNumber: UnknownInvoiceNumber,
		Currency:      DefaultCurrency,
		LineItems:     []LineItem{},
	}

	if m := invoiceNumberPattern.FindStringSubmatch(text); m != nil {
		inv.InvoiceNumber = m[1]
	} else {
		inv.Unparsed = append(inv.Unparsed, FieldInvoiceNumber)
	}

	if total, ok := parseTotal(text); ok {
		inv.TotalAmount = total
	} else {
		inv.Unparsed = append(inv.Unparsed, FieldTotalAmount)
	}

	if m := currencyPattern.FindStringSubmatch(text); m != nil {
		inv.Currency = m[1]
	} else {
		inv.Unparsed = append(inv.Unparsed, FieldCurrency)
	}

	for line := range strings.SplitSeq(text, "\n") {
		if item, ok := parseLineItem(strings.TrimSpace(line)); ok {
			inv.LineItems = append(inv.LineItems, item)
		}
	}
	if len(inv.LineItems) == 0 {
		inv.Unparsed = append(inv.Unparsed, FieldLineItems)
	}

	return inv
}

// Parsed reports whether field was located in the source text.
func (i Invoice) Parsed(field string) bool {
	for _, f := range i.Unparsed {
		if f == field {
			return false
		}
	}
	return true
}

func parseTotal(text string) (float64, bool) {
	m := totalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseLineItem(line string) (LineItem, bool) {
	m := lineItemPattern.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, false
	}

	qty, err := strconv.Atoi(m[2])
	if err != nil {
		return LineItem{}, false
	}
	unit, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return LineItem{}, false
	}
	total, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return LineItem{}, false
	}

	return LineItem{
		Description: strings.TrimSpace(m[1]),
		Quantity:    qty,
		UnitPrice:   unit,
		LineTotal:   total,
	}, true
}
