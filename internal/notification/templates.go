package notification

import (
	"fmt"
	"strings"
)

// Template names, one per notification-worthy lifecycle event.
const (
	TemplateCustomerDelivery = "invoice-customer-delivery"
	TemplateSent             = "invoice-sent"
	TemplateApproved         = "invoice-approved"
	TemplateRejected         = "invoice-rejected"
	TemplateCancelled        = "invoice-cancelled"
	TemplateReminder         = "invoice-reminder"
)

// Template holds the subject and body skeletons of one named notification.
// Placeholders use {{key}} syntax.
type Template struct {
	Subject string
	HTML    string
	Text    string
}

// Rendered is a template with its placeholders substituted.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

var catalogue = map[string]Template{
	TemplateCustomerDelivery: {
		Subject: "Sua nota fiscal {{number}}/{{series}}",
		HTML:    "<p>Olá {{recipient_name}},</p><p>Sua nota fiscal de serviço nº {{number}} (série {{series}}) está disponível.</p><p><a href=\"{{document_link}}\">Acessar nota fiscal</a></p><p>Código de verificação: {{verification_code}}</p>",
		Text:    "Olá {{recipient_name}},\n\nSua nota fiscal de serviço nº {{number}} (série {{series}}) está disponível.\n\nLink: {{document_link}}\nCódigo de verificação: {{verification_code}}\n",
	},
	TemplateSent: {
		Subject: "Nota fiscal {{number}}/{{series}} enviada para processamento",
		HTML:    "<p>Olá {{recipient_name}},</p><p>Sua nota fiscal nº {{number}} foi transmitida à prefeitura e aguarda processamento.</p><p>Protocolo: {{protocol}}</p>",
		Text:    "Olá {{recipient_name}},\n\nSua nota fiscal nº {{number}} foi transmitida à prefeitura e aguarda processamento.\nProtocolo: {{protocol}}\n",
	},
	TemplateApproved: {
		Subject: "Nota fiscal {{number}}/{{series}} aprovada",
		HTML:    "<p>Olá {{recipient_name}},</p><p>Sua nota fiscal nº {{number}} foi aprovada pela prefeitura.</p><p><a href=\"{{document_link}}\">Acessar nota fiscal</a></p>",
		Text:    "Olá {{recipient_name}},\n\nSua nota fiscal nº {{number}} foi aprovada pela prefeitura.\nLink: {{document_link}}\n",
	},
	TemplateRejected: {
		Subject: "Nota fiscal {{number}}/{{series}} rejeitada",
		HTML:    "<p>Olá {{recipient_name}},</p><p>Sua nota fiscal nº {{number}} foi rejeitada pela prefeitura.</p><p>Motivo: {{observations}}</p>",
		Text:    "Olá {{recipient_name}},\n\nSua nota fiscal nº {{number}} foi rejeitada pela prefeitura.\nMotivo: {{observations}}\n",
	},
	TemplateCancelled: {
		Subject: "Nota fiscal {{number}}/{{series}} cancelada",
		HTML:    "<p>Olá {{recipient_name}},</p><p>Sua nota fiscal nº {{number}} foi cancelada.</p><p>Motivo: {{observations}}</p>",
		Text:    "Olá {{recipient_name}},\n\nSua nota fiscal nº {{number}} foi cancelada.\nMotivo: {{observations}}\n",
	},
	TemplateReminder: {
		Subject: "Nota fiscal {{number}}/{{series}} aguardando processamento há {{days}} dias",
		HTML:    "<p>A nota fiscal nº {{number}} (série {{series}}) foi enviada há {{days}} dias e ainda não teve o processamento concluído.</p>",
		Text:    "A nota fiscal nº {{number}} (série {{series}}) foi enviada há {{days}} dias e ainda não teve o processamento concluído.\n",
	},
}

// Render substitutes data into the named template. Keys absent from data stay
// as literal {{key}} placeholders rather than being blanked.
func Render(name string, data map[string]string) (*Rendered, error) {
	tpl, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", name)
	}
	return &Rendered{
		Subject: substitute(tpl.Subject, data),
		HTML:    substitute(tpl.HTML, data),
		Text:    substitute(tpl.Text, data),
	}, nil
}

func substitute(s string, data map[string]string) string {
	for key, value := range data {
		s = strings.ReplaceAll(s, "{{"+key+"}}", value)
	}
	return s
}
