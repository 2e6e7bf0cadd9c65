package email

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	TplOrderReceived      = "order_received"
	TplPaymentReceived    = "payment_received"
	TplOrderStatusChanged = "order_status_changed"
	TplDesignProofReady   = "design_proof_ready"
	TplPasswordReset      = "password_reset"
	TplVerifyEmail        = "verify_email"
)

var ErrUnknownTemplate = errors.New("unknown email template")

type templateSet struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

type Renderer struct {
	sets map[string]templateSet
}

func NewRenderer() *Renderer {
	r := &Renderer{sets: make(map[string]templateSet, len(builtin))}
	for name, src := range builtin {
		r.sets[name] = templateSet{
			subject: texttemplate.Must(texttemplate.New(name + ".subject").Option("missingkey=zero").Parse(src.subject)),
			text:    texttemplate.Must(texttemplate.New(name + ".txt").Option("missingkey=zero").Parse(src.text)),
			html:    htmltemplate.Must(htmltemplate.New(name + ".html").Option("missingkey=zero").Parse(layoutHead + src.html + layoutFoot)),
		}
	}
	return r
}

// Render executes the named template set against payload.
func (r *Renderer) Render(name, to string, payload map[string]any) (Message, error) {
	set, ok := r.sets[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var subj, txt, html bytes.Buffer
	if err := set.subject.Execute(&subj, payload); err != nil {
		return Message{}, err
	}
	if err := set.text.Execute(&txt, payload); err != nil {
		return Message{}, err
	}
	if err := set.html.Execute(&html, payload); err != nil {
		return Message{}, err
	}
	toName, _ := payload["Name"].(string)
	return Message{To: to, ToName: toName, Subject: subj.String(), Text: txt.String(), HTML: html.String()}, nil
}

type source struct {
	subject, text, html string
}

const layoutHead = `<html><body style="font-family: sans-serif; color: #222;">
<h2 style="color:#b8860b;">Geethika Digital World</h2>
`

const layoutFoot = `
<p style="color:#777;font-size:12px;">Geethika Digital World · Photography, printing &amp; personalised gifts</p>
</body></html>`

var builtin = map[string]source{
	TplOrderReceived: {
		subject: `Order {{.OrderNumber}} received`,
		text: `Hi {{.Name}},

Thank you for your order {{.OrderNumber}}.
{{range .Items}}- {{.Name}} x{{.Qty}}: {{.Line}}
{{end}}
Total: {{.Total}}
Payment: {{.PaymentMethod}}

Track your order: {{.TrackURL}}
`,
		html: `<p>Hi {{.Name}},</p>
<p>Thank you for your order <strong>{{.OrderNumber}}</strong>.</p>
<ul>{{range .Items}}<li>{{.Name}} x{{.Qty}}: {{.Line}}</li>{{end}}</ul>
<p><strong>Total:</strong> {{.Total}}<br><strong>Payment:</strong> {{.PaymentMethod}}</p>
<p><a href="{{.TrackURL}}">Track your order</a></p>`,
	},
	TplPaymentReceived: {
		subject: `Payment received for {{.OrderNumber}}`,
		text: `Hi {{.Name}},

We received your payment of {{.Amount}} for order {{.OrderNumber}}.
Track your order: {{.TrackURL}}
`,
		html: `<p>Hi {{.Name}},</p>
<p>We received your payment of <strong>{{.Amount}}</strong> for order <strong>{{.OrderNumber}}</strong>.</p>
<p><a href="{{.TrackURL}}">Track your order</a></p>`,
	},
	TplOrderStatusChanged: {
		subject: `Order {{.OrderNumber}} is now {{.Status}}`,
		text: `Hi {{.Name}},

Your order {{.OrderNumber}} is now {{.Status}}.
{{if .TrackingNumber}}Courier: {{.Courier}} / tracking number {{.TrackingNumber}}
{{end}}{{if .Note}}Note: {{.Note}}
{{end}}
Track your order: {{.TrackURL}}
`,
		html: `<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
{{if .TrackingNumber}}<p>Courier: {{.Courier}}<br>Tracking number: {{.TrackingNumber}}</p>{{end}}
{{if .Note}}<p>{{.Note}}</p>{{end}}
<p><a href="{{.TrackURL}}">Track your order</a></p>`,
	},
	TplDesignProofReady: {
		subject: `Design proof v{{.Version}} ready for {{.OrderNumber}}`,
		text: `Hi {{.Name}},

A design proof (version {{.Version}}) for "{{.ItemName}}" in order {{.OrderNumber}} is ready for your review.
Proof: {{.ProofURL}}
Approve or request changes: {{.ReviewURL}}
`,
		html: `<p>Hi {{.Name}},</p>
<p>A design proof (version {{.Version}}) for <strong>{{.ItemName}}</strong> in order <strong>{{.OrderNumber}}</strong> is ready.</p>
<p><img src="{{.ProofURL}}" alt="proof" style="max-width:480px;"></p>
<p><a href="{{.ReviewURL}}">Approve or request changes</a></p>`,
	},
	TplPasswordReset: {
		subject: `Reset your password`,
		text: `Hi {{.Name}},

Use this link to reset your password: {{.ResetURL}}
The link expires in {{.ExpiresIn}}. If you did not ask for this, ignore this email.
`,
		html: `<p>Hi {{.Name}},</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not ask for this, ignore this email.</p>`,
	},
	TplVerifyEmail: {
		subject: `Confirm your email address`,
		text: `Hi {{.Name}},

Confirm your email address to see earlier orders placed with it: {{.VerifyURL}}
The link expires in {{.ExpiresIn}}.
`,
		html: `<p>Hi {{.Name}},</p>
<p><a href="{{.VerifyURL}}">Confirm your email address</a> to see earlier orders placed with it.</p>
<p>The link expires in {{.ExpiresIn}}.</p>`,
	},
}
