package signer

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
)

func TestXMLSigner_BuildPayload(t *testing.T) {
	s := NewXMLSigner()

	inv := &entity.Invoice{
		Number:             42,
		Series:             "A",
		EmissionDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		ServiceValue:       decimal.RequireFromString("150.5"),
		ServiceDescription: "Mensalidade academia",
		ProviderTaxID:      "12345678000199",
		RecipientName:      "Maria Silva",
	}

	payload, err := s.BuildPayload(inv)
	require.NoError(t, err)

	assert.Contains(t, payload, "<Numero>42</Numero>")
	assert.Contains(t, payload, "<Serie>A</Serie>")
	assert.Contains(t, payload, "<DataEmissao>2025-03-10</DataEmissao>")
	assert.Contains(t, payload, "<ValorServicos>150.50</ValorServicos>")
	assert.Contains(t, payload, "<Cnpj>12345678000199</Cnpj>")
}

func TestXMLSigner_BuildPayload_NilInvoice(t *testing.T) {
	_, err := NewXMLSigner().BuildPayload(nil)

	var signErr *emission.SigningError
	assert.ErrorAs(t, err, &signErr)
}

func TestXMLSigner_BuildCancelPayload_EscapesReason(t *testing.T) {
	s := NewXMLSigner()

	inv := &entity.Invoice{
		Number: 42,
		Series: "A",
		Transmission: &entity.TransmissionReference{
			Protocol:     "PRT-001",
			RemoteNumber: "4567",
		},
	}

	payload, err := s.BuildCancelPayload(inv, "cliente desistiu & pediu <reembolso>")
	require.NoError(t, err)

	assert.Contains(t, payload, "<Numero>4567</Numero>")
	assert.Contains(t, payload, "cliente desistiu &amp; pediu &lt;reembolso&gt;")
	assert.NotContains(t, payload, "<reembolso>")

	// The envelope must survive a decode and hand the reason back intact.
	var decoded struct {
		RemoteNumber string `xml:"IdentificacaoNfse>Numero"`
		Reason       string `xml:"CodigoCancelamento"`
	}
	require.NoError(t, xml.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "4567", decoded.RemoteNumber)
	assert.Equal(t, "cliente desistiu & pediu <reembolso>", decoded.Reason)
}

func TestXMLSigner_BuildCancelPayload_NoTransmission(t *testing.T) {
	s := NewXMLSigner()

	var signErr *emission.SigningError

	_, err := s.BuildCancelPayload(nil, "duplicada")
	assert.ErrorAs(t, err, &signErr)

	_, err = s.BuildCancelPayload(&entity.Invoice{Number: 42}, "duplicada")
	assert.ErrorAs(t, err, &signErr)
}

func TestXMLSigner_Sign(t *testing.T) {
	signed, err := NewXMLSigner().Sign("<Rps/>")
	require.NoError(t, err)

	assert.Equal(t, "<SignedRps><Rps/><Signature/></SignedRps>", signed)
}

func TestXMLSigner_Sign_EmptyPayload(t *testing.T) {
	_, err := NewXMLSigner().Sign("")

	var signErr *emission.SigningError
	assert.ErrorAs(t, err, &signErr)
}
