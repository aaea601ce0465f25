package cfdi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Version="4.0"
    Fecha="2025-03-10T14:22:35" TipoDeComprobante="I" Total="1160.00">
  <cfdi:Emisor Rfc="aaa010101aaa" Nombre="Acme SA de CV"/>
  <cfdi:Receptor Rfc="BBB020202BB2" Nombre="Cliente SA"/>
  <cfdi:Impuestos TotalImpuestosTrasladados="160.00" TotalImpuestosRetenidos="0.00"/>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital"
        Version="1.1" UUID="aabbccdd-1122-3344-5566-778899aabbcc"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`

func TestParse(t *testing.T) {
	t.Parallel()

	inv, err := Parse([]byte(sampleInvoice))
	require.NoError(t, err)

	require.Equal(t, "AABBCCDD-1122-3344-5566-778899AABBCC", inv.UUID)
	require.Equal(t, "AAA010101AAA", inv.IssuerRFC)
	require.Equal(t, "Acme SA de CV", inv.IssuerName)
	require.Equal(t, "BBB020202BB2", inv.ReceiverRFC)
	require.Equal(t, "Cliente SA", inv.ReceiverName)
	require.Equal(t, "I", inv.DocType)
	require.True(t, inv.Total.Equal(decimal.RequireFromString("1160.00")))
	require.True(t, inv.TransferredTax.Equal(decimal.RequireFromString("160.00")))
	require.True(t, inv.WithheldTax.IsZero())
	require.False(t, inv.DateFallback)

	expected := time.Date(2025, time.March, 10, 14, 22, 35, 0, time.Local)
	require.True(t, inv.IssuedAt.Equal(expected))
}

func TestParseMissingUUID(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Fecha="2025-03-10T14:22:35" Total="100">
  <cfdi:Emisor Rfc="AAA010101AAA"/>
  <cfdi:Receptor Rfc="BBB020202BB2"/>
</cfdi:Comprobante>`

	inv, err := Parse([]byte(doc))
	require.ErrorIs(t, err, ErrMissingUUID)
	require.Nil(t, inv)
}

func TestParseMalformedXML(t *testing.T) {
	t.Parallel()

	inv, err := Parse([]byte("<cfdi:Comprobante><unclosed"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissingUUID)
	require.Nil(t, inv)
}

func TestParseBadDateFallsBackToNow(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Fecha="not-a-date" Total="100">
  <cfdi:Emisor Rfc="AAA010101AAA"/>
  <cfdi:Receptor Rfc="BBB020202BB2"/>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital" UUID="11111111-2222-3333-4444-555555555555"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`

	before := time.Now()
	inv, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.True(t, inv.DateFallback)
	require.False(t, inv.IssuedAt.Before(before))
	require.False(t, inv.IssuedAt.After(time.Now()))
}

func TestParseDefaultsAbsentAmountsToZero(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Fecha="2025-01-02T10:00:00">
  <cfdi:Emisor Rfc="AAA010101AAA"/>
  <cfdi:Receptor Rfc="BBB020202BB2"/>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital" UUID="11111111-2222-3333-4444-555555555555"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`

	inv, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.True(t, inv.Total.IsZero())
	require.True(t, inv.TransferredTax.IsZero())
	require.True(t, inv.WithheldTax.IsZero())
}
