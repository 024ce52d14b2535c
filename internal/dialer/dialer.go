package dialer

import (
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrNotConfigured = errors.New("twilio not configured")

// Dialer places outbound calls whose media is bridged straight into the
// relay's stream endpoint.
type Dialer struct {
	client *twilio.RestClient
	from   string
	host   string
}

func New(accountSID, authToken, from, publicHost string) *Dialer {
	d := &Dialer{from: from, host: publicHost}
	if accountSID != "" && authToken != "" {
		d.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
	}
	return d
}

func (d *Dialer) Configured() bool {
	return d.client != nil && d.from != "" && d.host != ""
}

// Call originates a call to the given number and returns its SID.
func (d *Dialer) Call(to string) (string, error) {
	if !d.Configured() {
		return "", ErrNotConfigured
	}

	twiml := `<?xml version="1.0" encoding="UTF-8"?><Response><Connect><Stream url="wss://` +
		d.host + `/media-stream" /></Connect></Response>`

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(d.from)
	params.SetTwiml(twiml)

	resp, err := d.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
