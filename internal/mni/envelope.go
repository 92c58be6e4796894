// Package mni is the client side of the judiciary's MNI SOAP service:
// envelope construction, the HTTP transport with its resilience wrapping,
// and the high-level case/document operations.
package mni

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// Credentials identify the consumer system to the MNI service.
type Credentials struct {
	Consumer string // idConsultante
	Password string // senhaConsultante
}

// The service exposes a single consultarProcesso operation. A document batch
// request is the same operation with repeated documento elements appended;
// there is no separate download operation.
const (
	soapEnvOpen = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"` +
		` xmlns:ser="http://www.cnj.jus.br/servico-intercomunicacao-2.2.2/"` +
		` xmlns:tip="http://www.cnj.jus.br/tipos-servico-intercomunicacao-2.2.2">` +
		`<soapenv:Header/><soapenv:Body>`
	soapEnvClose = `</soapenv:Body></soapenv:Envelope>`
)

// queryEnvelope builds the consultarProcesso envelope for caseNumber
// (canonical 20 digits). docIDs, when present, turn the query into a
// document batch request. Document metadata is always requested: the
// enforcement cascade and certificate discovery depend on it.
func queryEnvelope(creds Credentials, caseNumber string, docIDs []string) []byte {
	var b strings.Builder
	b.Grow(512)
	b.WriteString(xml.Header)
	b.WriteString(soapEnvOpen)
	b.WriteString(`<ser:consultarProcesso>`)
	writeElem(&b, "tip:idConsultante", creds.Consumer)
	writeElem(&b, "tip:senhaConsultante", creds.Password)
	writeElem(&b, "tip:numeroProcesso", caseNumber)
	writeElem(&b, "tip:movimentos", "true")
	writeElem(&b, "tip:incluirCabecalho", "true")
	writeElem(&b, "tip:incluirDocumentos", "true")
	for _, id := range docIDs {
		writeElem(&b, "tip:documento", id)
	}
	b.WriteString(`</ser:consultarProcesso>`)
	b.WriteString(soapEnvClose)
	return []byte(b.String())
}

func writeElem(b *strings.Builder, name, value string) {
	b.WriteByte('<')
	b.WriteString(name)
	b.WriteByte('>')
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(value))
	b.Write(buf.Bytes())
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}
