package notify

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

const revealSubject = "Your Virtual Capsule is Now Available!"

const revealText = `Hi {{.Name}},

Your time capsule is now available to view.

You chose {{.RevealDate}} as the day to open it, and that day has arrived.

{{.Summary.Narrative}}

Reflections answered: {{.Summary.ResponseCount}} ({{.Summary.Counts.Positive}} positive, {{.Summary.Counts.Neutral}} neutral, {{.Summary.Counts.Negative}} negative)

{{.Summary.PositiveNote}}

Open your capsule: {{.CapsuleURL}}

Thank you for using Future Echoes.
`

const revealHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333;">
  <h2 style="color: #4F46E5;">Hi {{.Name}},</h2>
  <p>Your time capsule is now available to view.</p>
  <p>You chose {{.RevealDate}} as the day to open it, and that day has arrived.</p>
  <p>{{.Summary.Narrative}}</p>
  <p>Reflections answered: {{.Summary.ResponseCount}} ({{.Summary.Counts.Positive}} positive, {{.Summary.Counts.Neutral}} neutral, {{.Summary.Counts.Negative}} negative)</p>
  <p><em>{{.Summary.PositiveNote}}</em></p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.CapsuleURL}}" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block; font-weight: bold;">View Your Capsule</a>
  </div>
  <p>Thank you for using Future Echoes.</p>
  <div style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #777;">
    <p>If you did not create this time capsule, please disregard this email.</p>
  </div>
</div>
`

var (
	revealTextTemplate = texttemplate.Must(texttemplate.New("reveal.txt").Parse(revealText))
	revealHTMLTemplate = htmltemplate.Must(htmltemplate.New("reveal.html").Parse(revealHTML))
)
