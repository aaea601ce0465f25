package cfdi

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingUUID marks a document without a TimbreFiscalDigital UUID. Such a
// file cannot be indexed and is skipped by callers.
var ErrMissingUUID = errors.New("cfdi: document has no fiscal UUID")

// cfdiDateLayout is the timestamp format mandated by the CFDI schema.
const cfdiDateLayout = "2006-01-02T15:04:05"

// Invoice is the canonical record extracted from one CFDI XML document.
type Invoice struct {
	UUID           string
	IssuerRFC      string
	IssuerName     string
	ReceiverRFC    string
	ReceiverName   string
	IssuedAt       time.Time
	DocType        string
	Total          decimal.Decimal
	TransferredTax decimal.Decimal
	WithheldTax    decimal.Decimal

	// DateFallback is set when Fecha could not be parsed and IssuedAt was
	// substituted with the current time. Callers must surface this as a
	// data-quality warning.
	DateFallback bool
}

// comprobante mirrors the subset of the CFDI schema the indexer needs.
// Element and attribute names match by local name, so both cfdi 3.3 and 4.0
// namespaces parse.
type comprobante struct {
	Fecha             string `xml:"Fecha,attr"`
	TipoDeComprobante string `xml:"TipoDeComprobante,attr"`
	Total             string `xml:"Total,attr"`
	Emisor            struct {
		Rfc    string `xml:"Rfc,attr"`
		Nombre string `xml:"Nombre,attr"`
	} `xml:"Emisor"`
	Receptor struct {
		Rfc    string `xml:"Rfc,attr"`
		Nombre string `xml:"Nombre,attr"`
	} `xml:"Receptor"`
	Impuestos struct {
		TotalImpuestosTrasladados string `xml:"TotalImpuestosTrasladados,attr"`
		TotalImpuestosRetenidos   string `xml:"TotalImpuestosRetenidos,attr"`
	} `xml:"Impuestos"`
	Complemento struct {
		Timbre struct {
			UUID string `xml:"UUID,attr"`
		} `xml:"TimbreFiscalDigital"`
	} `xml:"Complemento"`
}

// Parse converts one CFDI XML document into an Invoice. It is pure and
// performs no I/O. A document without a fiscal UUID returns ErrMissingUUID.
func Parse(data []byte) (*Invoice, error) {
	var c comprobante
	if err := xml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cfdi: unmarshal: %w", err)
	}

	uuid := strings.ToUpper(strings.TrimSpace(c.Complemento.Timbre.UUID))
	if uuid == "" {
		return nil, ErrMissingUUID
	}

	inv := &Invoice{
		UUID:           uuid,
		IssuerRFC:      strings.ToUpper(strings.TrimSpace(c.Emisor.Rfc)),
		IssuerName:     strings.TrimSpace(c.Emisor.Nombre),
		ReceiverRFC:    strings.ToUpper(strings.TrimSpace(c.Receptor.Rfc)),
		ReceiverName:   strings.TrimSpace(c.Receptor.Nombre),
		DocType:        strings.TrimSpace(c.TipoDeComprobante),
		Total:          parseAmount(c.Total),
		TransferredTax: parseAmount(c.Impuestos.TotalImpuestosTrasladados),
		WithheldTax:    parseAmount(c.Impuestos.TotalImpuestosRetenidos),
	}

	issuedAt, err := time.ParseInLocation(cfdiDateLayout, c.Fecha, time.Local)
	if err != nil {
		inv.IssuedAt = time.Now()
		inv.DateFallback = true
	} else {
		inv.IssuedAt = issuedAt
	}

	return inv, nil
}

// parseAmount reads a decimal attribute, defaulting absent or malformed
// values to zero.
func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
