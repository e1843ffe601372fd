package templates

import (
	"fmt"
	"html"
	"strings"
)

// AccountEmailData holds the values rendered into account status e-mails
type AccountEmailData struct {
	Name      string
	Role      string
	LoginURL  string
	Approved  bool
	Signature string
}

// RenderAccountStatusEmail generates the HTML sent when a pending account is
// approved or rejected. Every value is HTML-escaped.
func RenderAccountStatusEmail(d AccountEmailData) string {
	title := "Cadastro rejeitado"
	body := "Seu cadastro no sistema de ocorrências periciais foi analisado e não pôde ser aprovado.\nEm caso de dúvidas, procure a administração do seu órgão."
	button := ""
	if d.Approved {
		title = "Cadastro aprovado"
		body = fmt.Sprintf("Seu cadastro no sistema de ocorrências periciais foi aprovado.\nPerfil de acesso: %s", d.Role)
		if d.LoginURL != "" {
			button = fmt.Sprintf(`<a class="cta-button" href="%s">Acessar o sistema</a>`, html.EscapeString(d.LoginURL))
		}
	}
	signature := d.Signature
	if signature == "" {
		signature = "Coordenação de Perícia"
	}

	htmlBody := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f5f7; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: #1f3a5f; padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 32px 30px; color: #1f2933; line-height: 1.6; }
    .cta-button { display: inline-block; background: #1f3a5f; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none; font-weight: 700; margin-top: 20px; }
    .footer { padding: 24px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      <p>Olá, %s.</p>
      <p>%s</p>
      %s
    </div>
    <div class="footer">%s</div>
  </div>
</body>
</html>`, title, title, html.EscapeString(d.Name), htmlBody, button, html.EscapeString(signature))
}

// AccountStatusPlainText is the text/plain alternative of RenderAccountStatusEmail
func AccountStatusPlainText(d AccountEmailData) string {
	if d.Approved {
		return fmt.Sprintf("Olá, %s.\n\nSeu cadastro foi aprovado. Perfil de acesso: %s.\n%s", d.Name, d.Role, d.LoginURL)
	}
	return fmt.Sprintf("Olá, %s.\n\nSeu cadastro foi analisado e não pôde ser aprovado.", d.Name)
}
