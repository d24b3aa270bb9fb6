package webservice

import (
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
)

func readBody(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// collectFields walks the response document and collects every leaf element's
// character data, keyed by lowercased local name. Municipal responses differ in
// namespaces and outer tags but agree on the field names, so matching on local
// names keeps the parser envelope-agnostic.
func collectFields(body string) (map[string]string, error) {
	fields := make(map[string]string)
	decoder := xml.NewDecoder(strings.NewReader(body))

	var current string
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
		case xml.CharData:
			if current == "" {
				continue
			}
			if value := strings.TrimSpace(string(t)); value != "" {
				fields[current] = value
			}
		case xml.EndElement:
			current = ""
		}
	}

	if len(fields) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return fields, nil
}

func parseSendResponse(op, body string) (*SendResult, error) {
	fields, err := collectFields(body)
	if err != nil {
		return nil, &emission.ResponseParseError{Op: op, Err: err}
	}

	result := &SendResult{
		Success:          parseBool(fields["sucesso"]),
		Protocol:         fields["protocolo"],
		RemoteNumber:     fields["numero"],
		RemoteCode:       fields["codigonfse"],
		VerificationCode: fields["codigoverificacao"],
		DocumentLink:     fields["linkconsulta"],
		Observations:     firstOf(fields, "mensagem", "motivo", "observacoes"),
	}
	if raw, ok := fields["datarecebimento"]; ok {
		result.RemoteDate = parseDate(raw)
	}

	if _, ok := fields["sucesso"]; !ok {
		// A response without a success indicator is unparseable, never an
		// implicit rejection.
		return nil, &emission.ResponseParseError{Op: op, Err: io.ErrUnexpectedEOF}
	}

	return result, nil
}

func parseQueryResponse(op, body string) (*QueryResult, error) {
	fields, err := collectFields(body)
	if err != nil {
		return nil, &emission.ResponseParseError{Op: op, Err: err}
	}

	status, ok := firstKey(fields, "situacao", "status")
	if !ok {
		return nil, &emission.ResponseParseError{Op: op, Err: io.ErrUnexpectedEOF}
	}

	result := &QueryResult{
		Status:       normalizeStatus(status),
		RemoteNumber: fields["numero"],
		RemoteCode:   fields["codigonfse"],
		DocumentLink: fields["linkconsulta"],
		Observations: firstOf(fields, "mensagem", "motivo", "observacoes"),
	}
	if raw, ok := fields["datarecebimento"]; ok {
		result.RemoteDate = parseDate(raw)
	}
	if raw, ok := fields["dataprocessamento"]; ok {
		result.ProcessedDate = parseDate(raw)
	}

	return result, nil
}

// normalizeStatus maps the ABRASF situation codes onto the canonical remote
// vocabulary. Word statuses pass through uppercased; anything else is handed to
// the workflow verbatim, which treats it as still processing.
func normalizeStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "1", "2", StatusProcessing:
		return StatusProcessing
	case "3", StatusRejected:
		return StatusRejected
	case "4", StatusApproved:
		return StatusApproved
	default:
		return strings.ToUpper(strings.TrimSpace(raw))
	}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "sim":
		return true
	}
	return false
}

func parseDate(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstOf(fields map[string]string, keys ...string) string {
	v, _ := firstKey(fields, keys...)
	return v
}

func firstKey(fields map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return "", false
}
