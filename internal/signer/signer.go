// Package signer prepares the transmittable RPS document. Real XML-DSig with
// an enrolled certificate lives behind the Signer interface as an external
// collaborator; this package ships the payload builder and a placeholder
// signer so the workflow and its tests have a working seam.
package signer

import (
	"encoding/xml"
	"fmt"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
)

// Signer produces a transmittable, signed XML payload from invoice data.
type Signer interface {
	// BuildPayload renders the RPS document for the invoice
	BuildPayload(inv *entity.Invoice) (string, error)

	// BuildCancelPayload renders the cancellation request for a transmitted
	// invoice. The reason is free user text and is escaped for XML.
	BuildCancelPayload(inv *entity.Invoice, reason string) (string, error)

	// Sign wraps the payload with its digital signature
	Sign(payload string) (string, error)
}

// rpsDocument is the RPS wire shape (ABRASF subset)
type rpsDocument struct {
	XMLName xml.Name `xml:"Rps"`

	Number       int64  `xml:"IdentificacaoRps>Numero"`
	Series       string `xml:"IdentificacaoRps>Serie"`
	EmissionDate string `xml:"DataEmissao"`

	ServiceValue       string `xml:"Servico>Valores>ValorServicos"`
	ServiceDescription string `xml:"Servico>Discriminacao"`

	ProviderTaxID string `xml:"Prestador>Cnpj"`
	RecipientName string `xml:"Tomador>RazaoSocial"`
}

// cancelRequest is the cancellation wire shape (ABRASF subset)
type cancelRequest struct {
	XMLName xml.Name `xml:"Pedido"`

	RemoteNumber string `xml:"IdentificacaoNfse>Numero"`
	Reason       string `xml:"CodigoCancelamento"`
}

// XMLSigner builds the RPS payload and applies a placeholder signature block.
// Swap in a certificate-backed implementation for production use.
type XMLSigner struct{}

// NewXMLSigner creates the placeholder signer
func NewXMLSigner() *XMLSigner {
	return &XMLSigner{}
}

// BuildPayload renders the RPS document for the invoice
func (s *XMLSigner) BuildPayload(inv *entity.Invoice) (string, error) {
	if inv == nil {
		return "", &emission.SigningError{Stage: "payload", Err: fmt.Errorf("nil invoice")}
	}

	doc := rpsDocument{
		Number:             inv.Number,
		Series:             inv.Series,
		EmissionDate:       inv.EmissionDate.Format("2006-01-02"),
		ServiceValue:       inv.ServiceValue.StringFixed(2),
		ServiceDescription: inv.ServiceDescription,
		ProviderTaxID:      inv.ProviderTaxID,
		RecipientName:      inv.RecipientName,
	}

	data, err := xml.Marshal(doc)
	if err != nil {
		return "", &emission.SigningError{Stage: "payload", Err: err}
	}
	return string(data), nil
}

// BuildCancelPayload renders the cancellation request for a transmitted
// invoice. Marshalling through encoding/xml keeps metacharacters in the
// user-supplied reason from breaking the envelope.
func (s *XMLSigner) BuildCancelPayload(inv *entity.Invoice, reason string) (string, error) {
	if inv == nil || inv.Transmission == nil {
		return "", &emission.SigningError{Stage: "cancel payload", Err: fmt.Errorf("invoice has no transmission reference")}
	}

	data, err := xml.Marshal(cancelRequest{
		RemoteNumber: inv.Transmission.RemoteNumber,
		Reason:       reason,
	})
	if err != nil {
		return "", &emission.SigningError{Stage: "cancel payload", Err: err}
	}
	return string(data), nil
}

// Sign wraps the payload in a signature placeholder element
func (s *XMLSigner) Sign(payload string) (string, error) {
	if payload == "" {
		return "", &emission.SigningError{Stage: "signature", Err: fmt.Errorf("empty payload")}
	}
	return fmt.Sprintf("<SignedRps>%s<Signature/></SignedRps>", payload), nil
}
