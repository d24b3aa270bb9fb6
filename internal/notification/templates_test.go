package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesPlaceholders(t *testing.T) {
	rendered, err := Render(TemplateApproved, map[string]string{
		"number":         "42",
		"series":         "A",
		"recipient_name": "Maria Silva",
		"document_link":  "https://nfse.example.gov.br/42",
	})
	require.NoError(t, err)

	assert.Equal(t, "Nota fiscal 42/A aprovada", rendered.Subject)
	assert.Contains(t, rendered.HTML, "Maria Silva")
	assert.Contains(t, rendered.Text, "https://nfse.example.gov.br/42")
}

func TestRender_MissingKeysStayLiteral(t *testing.T) {
	rendered, err := Render(TemplateSent, map[string]string{"number": "42"})
	require.NoError(t, err)

	assert.Contains(t, rendered.Subject, "{{series}}")
	assert.Contains(t, rendered.Text, "{{protocol}}")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render("no-such-template", nil)
	assert.Error(t, err)
}

func TestRender_AllCatalogueEntriesRender(t *testing.T) {
	names := []string{
		TemplateCustomerDelivery,
		TemplateSent,
		TemplateApproved,
		TemplateRejected,
		TemplateCancelled,
		TemplateReminder,
	}
	for _, name := range names {
		rendered, err := Render(name, map[string]string{"number": "1", "series": "A"})
		require.NoError(t, err, "template %s", name)
		assert.NotEmpty(t, rendered.Subject)
		assert.NotEmpty(t, rendered.Text)
	}
}
