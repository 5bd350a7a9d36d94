package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/Daskott/lifealert/server/logger"
	"github.com/stretchr/testify/assert"
)

type sentMessage struct {
	to      string
	subject string
	body    string
}

type fakeSMS struct {
	sent    []sentMessage
	failFor map[string]bool
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) error {
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	if f.failFor[to] {
		return errors.New("invalid 'To' phone number")
	}
	return nil
}

type fakeEmail struct {
	sent    []sentMessage
	failFor map[string]bool
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, html string) error {
	f.sent = append(f.sent, sentMessage{to: to, subject: subject, body: html})
	if f.failFor[to] {
		return errors.New("mailbox unavailable")
	}
	return nil
}

func TestDispatchSendsOneMessagePerRecipient(t *testing.T) {
	sms, email := &fakeSMS{}, &fakeEmail{}
	d := NewDispatcher(sms, email, "", logger.NewNop())
	loc := Location{Latitude: 28.7041, Longitude: 77.1025}

	results := d.Dispatch(context.Background(), loc, []string{"+15551111111", "+15552222222"}, []string{"a@x.com", "b@x.com", "c@x.com"})

	assert.Len(t, sms.sent, 2)
	assert.Len(t, email.sent, 3)
	assert.Len(t, results, 5)

	for _, msg := range sms.sent {
		assert.Contains(t, msg.body, "https://maps.google.com/?q=28.7041,77.1025")
	}
	for _, msg := range email.sent {
		assert.Equal(t, EMAIL_SUBJECT, msg.subject)
		assert.Contains(t, msg.body, "https://maps.google.com/?q=28.7041,77.1025")
		assert.Contains(t, msg.body, "Latitude: 28.7041")
		assert.Contains(t, msg.body, "Longitude: 77.1025")
	}

	delivered, failed := Tally(results)
	assert.Equal(t, 5, delivered)
	assert.Equal(t, 0, failed)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	sms := &fakeSMS{failFor: map[string]bool{"not-a-number": true}}
	email := &fakeEmail{failFor: map[string]bool{"a@x.com": true}}
	d := NewDispatcher(sms, email, "", logger.NewNop())

	results := d.Dispatch(context.Background(), Location{Latitude: 1, Longitude: 2},
		[]string{"not-a-number", "+15551111111"}, []string{"a@x.com", "b@x.com"})

	assert.Equal(t, []string{"not-a-number", "+15551111111"}, []string{sms.sent[0].to, sms.sent[1].to})
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, []string{email.sent[0].to, email.sent[1].to})

	expected := []Result{
		{Channel: SMS_CHANNEL, Recipient: "not-a-number", Error: "invalid 'To' phone number"},
		{Channel: SMS_CHANNEL, Recipient: "+15551111111", Success: true},
		{Channel: EMAIL_CHANNEL, Recipient: "a@x.com", Error: "mailbox unavailable"},
		{Channel: EMAIL_CHANNEL, Recipient: "b@x.com", Success: true},
	}
	assert.Equal(t, expected, results)

	delivered, failed := Tally(results)
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 2, failed)
}

func TestDispatchWithNoRecipients(t *testing.T) {
	sms, email := &fakeSMS{}, &fakeEmail{}
	d := NewDispatcher(sms, email, "", logger.NewNop())

	results := d.Dispatch(context.Background(), Location{}, []string{}, nil)

	assert.Empty(t, results)
	assert.Empty(t, sms.sent)
	assert.Empty(t, email.sent)
}

func TestMapsLink(t *testing.T) {
	cases := []struct {
		baseURL  string
		loc      Location
		expected string
	}{
		{"", Location{28.7041, 77.1025}, "https://maps.google.com/?q=28.7041,77.1025"},
		{"", Location{0, -0.5}, "https://maps.google.com/?q=0,-0.5"},
		{"https://maps.apple.com/", Location{-33.8688, 151.2093}, "https://maps.apple.com/?q=-33.8688,151.2093"},
	}

	for _, tcase := range cases {
		t.Run(tcase.expected, func(t *testing.T) {
			d := NewDispatcher(&fakeSMS{}, &fakeEmail{}, tcase.baseURL, logger.NewNop())
			assert.Equal(t, tcase.expected, d.MapsLink(tcase.loc))
		})
	}
}
