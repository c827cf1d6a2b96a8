package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
)

// AlertSubject is the subject line of every overdue notice.
const AlertSubject = "Nessuna conferma recente"

// AlertData fills the overdue notice sent to an emergency contact.
type AlertData struct {
	ContactName   string
	UserName      string
	HoursOverdue  int
	LastCheckin   string // already formatted, or "Mai"
	IntervalHours float64
}

// Interval prints the interval without trailing zeros ("24", "0.5").
func (d AlertData) Interval() string {
	return strconv.FormatFloat(d.IntervalHours, 'f', -1, 64)
}

const alertText = `Ciao {{.ContactName}},

Non abbiamo ricevuto conferma da {{.UserName}} nelle ultime {{.HoursOverdue}} ore.

Ultimo check-in: {{.LastCheckin}}
Intervallo configurato: ogni {{.Interval}} ore

Questa è una notifica automatica dall'app SILEME.
Ti preghiamo di verificare che tutto sia a posto.

Cordiali saluti,
Team SILEME`

const alertHTML = `<!DOCTYPE html>
<html lang="it">
<body style="font-family: sans-serif; line-height: 1.5;">
<p>Ciao {{.ContactName}},</p>
<p>Non abbiamo ricevuto conferma da <strong>{{.UserName}}</strong> nelle ultime {{.HoursOverdue}} ore.</p>
<p>Ultimo check-in: {{.LastCheckin}}<br>Intervallo configurato: ogni {{.Interval}} ore</p>
<p>Questa è una notifica automatica dall'app SILEME.<br>Ti preghiamo di verificare che tutto sia a posto.</p>
<p>Cordiali saluti,<br>Team SILEME</p>
</body>
</html>`

var (
	alertTextTmpl = texttemplate.Must(texttemplate.New("alert.txt").Parse(alertText))
	alertHTMLTmpl = htmltemplate.Must(htmltemplate.New("alert.html").Parse(alertHTML))
)

// RenderAlert builds the overdue notice. The caller sets To.
func RenderAlert(d AlertData) (Message, error) {
	var text, html bytes.Buffer
	if err := alertTextTmpl.Execute(&text, d); err != nil {
		return Message{}, err
	}
	if err := alertHTMLTmpl.Execute(&html, d); err != nil {
		return Message{}, err
	}
	return Message{
		Subject: AlertSubject,
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}
