package dispatch

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	SMS_CHANNEL   = "sms"
	EMAIL_CHANNEL = "email"

	DEFAULT_MAPS_BASE_URL = "https://maps.google.com/"

	EMAIL_SUBJECT = "🚨 EMERGENCY ALERT - HELP NEEDED!"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type Location struct {
	Latitude  float64
	Longitude float64
}

// Result is the outcome of one delivery attempt
type Result struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

var emailTemplate = template.Must(template.New("alert").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px;">
  <div style="background: red; color: white; padding: 20px; border-radius: 5px;">
    <h1 style="margin: 0;">🚨 EMERGENCY ALERT</h1>
  </div>
  <div style="padding: 20px; background: white; margin-top: 10px;">
    <p><strong>Location:</strong></p>
    <p>Latitude: {{.Latitude}}</p>
    <p>Longitude: {{.Longitude}}</p>
    <p><a href="{{.MapsLink}}" style="background-color: red; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">📍 VIEW LOCATION</a></p>
  </div>
</div>
`))

type Dispatcher struct {
	sms         SMSSender
	email       EmailSender
	mapsBaseURL string
	logg        *zap.SugaredLogger
}

func NewDispatcher(sms SMSSender, email EmailSender, mapsBaseURL string, logg *zap.SugaredLogger) *Dispatcher {
	if mapsBaseURL == "" {
		mapsBaseURL = DEFAULT_MAPS_BASE_URL
	}

	return &Dispatcher{sms: sms, email: email, mapsBaseURL: mapsBaseURL, logg: logg}
}

// MapsLink returns e.g https://maps.google.com/?q=28.7041,77.1025
func (d *Dispatcher) MapsLink(loc Location) string {
	q := formatCoordinate(loc.Latitude) + "," + formatCoordinate(loc.Longitude)

	base, err := url.Parse(d.mapsBaseURL)
	if err != nil {
		return DEFAULT_MAPS_BASE_URL + "?q=" + q
	}

	// Build the query by hand, url.Values would escape the comma
	base.RawQuery = "q=" + q
	return base.String()
}

func (d *Dispatcher) SMSBody(loc Location) string {
	return "EMERGENCY! Help needed immediately → " + d.MapsLink(loc)
}

func (d *Dispatcher) EmailBody(loc Location) (string, error) {
	buf := new(bytes.Buffer)
	err := emailTemplate.Execute(buf, map[string]interface{}{
		"Latitude":  formatCoordinate(loc.Latitude),
		"Longitude": formatCoordinate(loc.Longitude),
		"MapsLink":  template.URL(d.MapsLink(loc)),
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Dispatch sends one sms per phone & one email per address. Every recipient is
// attempted regardless of earlier failures; results are returned in input order,
// phones first.
func (d *Dispatcher) Dispatch(ctx context.Context, loc Location, phones, emails []string) []Result {
	results := make([]Result, 0, len(phones)+len(emails))

	smsBody := d.SMSBody(loc)
	for _, phone := range phones {
		err := d.sms.SendSMS(ctx, phone, smsBody)
		results = append(results, d.result(SMS_CHANNEL, phone, err))
	}

	if len(emails) == 0 {
		return results
	}

	html, err := d.EmailBody(loc)
	for _, email := range emails {
		if err == nil {
			results = append(results, d.result(EMAIL_CHANNEL, email, d.email.SendEmail(ctx, email, EMAIL_SUBJECT, html)))
			continue
		}
		results = append(results, d.result(EMAIL_CHANNEL, email, err))
	}

	return results
}

func (d *Dispatcher) result(channel, recipient string, err error) Result {
	if err != nil {
		d.logg.Warnw("delivery failed", "channel", channel, "recipient", recipient, "error", err)
		return Result{Channel: channel, Recipient: recipient, Error: err.Error()}
	}

	d.logg.Infow("delivery sent", "channel", channel, "recipient", recipient)
	return Result{Channel: channel, Recipient: recipient, Success: true}
}

// Tally counts successful & failed deliveries
func Tally(results []Result) (delivered, failed int) {
	for _, r := range results {
		if r.Success {
			delivered++
			continue
		}
		failed++
	}
	return delivered, failed
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
