package notify

import (
	"html/template"
	"strings"

	"github.com/nicx17/hytrack/internal/model"
)

// The card mirrors what the tracking page shows: location, status phrase,
// scan date and time, plus a link back to the carrier page.
var bodyTmpl = template.Must(template.New("notification").Parse(`<html>
<head>
<style>
  .container { font-family: Arial, sans-serif; max-width: 500px; margin: auto;
               padding: 20px; border: 1px solid #ddd; border-radius: 8px;
               background-color: #f9f9f9; color: #333; }
  h2 { color: #2E86C1; }
  .info { margin: 10px 0; padding: 10px; background-color: #fff;
          border-left: 4px solid #2E86C1; }
  .label { font-weight: bold; display: inline-block; width: 80px; }
  .track-link { display: inline-block; margin-top: 20px; padding: 10px 15px;
                background-color: #000; color: #fff; text-decoration: none;
                border-radius: 5px; }
  .footer { margin-top: 30px; font-size: 0.9em; color: #777; text-align: center; }
</style>
</head>
<body>
<div class="container">
  <h2>Tracking Update</h2>
  <div class="info"><span class="label">Location:</span> {{.Event.Location}}</div>
  <div class="info"><span class="label">Status:</span> {{.Event.Details}}</div>
  <div class="info"><span class="label">Date:</span> {{.Event.Date}}</div>
  <div class="info"><span class="label">Time:</span> {{.Event.Time}}</div>
  <a href="{{.TrackURL}}" class="track-link">Track Your Package</a>
  <div class="footer">Thank you for using HyTrack</div>
</div>
</body>
</html>
`))

type messageData struct {
	Event    model.Event
	TrackURL string
}

// BuildHTML renders the notification card for one event.
func BuildHTML(trackURL string, ev model.Event) (string, error) {
	var b strings.Builder
	if err := bodyTmpl.Execute(&b, messageData{Event: ev, TrackURL: trackURL}); err != nil {
		return "", err
	}
	return b.String(), nil
}
