package twilio

import (
	"context"

	"github.com/Daskott/lifealert/shared"
	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type ClientWrapper struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

// AccountInfo is the subset of the twilio account we report when verifying credentials
type AccountInfo struct {
	Sid          string
	FriendlyName string
}

func NewClient(config shared.TwilioConfig) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client: client,
		config: config,
	}
}

// SendSMS sends msg to a single phone number. A messaging service sid takes
// precedence over the 'from' number when both are configured.
func (cw *ClientWrapper) SendSMS(ctx context.Context, to, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	if cw.config.MessagingServiceSid != "" {
		params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	} else {
		params.SetFrom(cw.config.From)
	}
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.Api.CreateMessage(params)
	if err != nil {
		return errors.Wrapf(err, "twilio: send sms to %v", to)
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return errors.Errorf("twilio: send sms to %v: %v", to, *resp.ErrorMessage)
	}

	return nil
}

// FetchAccount looks up the configured account, which fails fast on bad credentials
func (cw *ClientWrapper) FetchAccount() (*AccountInfo, error) {
	account, err := cw.client.Api.FetchAccount(cw.config.AccountSid)
	if err != nil {
		return nil, errors.Wrap(err, "twilio: fetch account")
	}

	return &AccountInfo{
		Sid:          stringValue(account.Sid),
		FriendlyName: stringValue(account.FriendlyName),
	}, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
