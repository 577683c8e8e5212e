package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"utvibe/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestOTPMessage(t *testing.T) {
	msg, err := OTPMessage("bevo@utexas.edu", "482913", 10*time.Minute, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "bevo@utexas.edu", msg.To)
	assert.Equal(t, OTPSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "482913")
	assert.Contains(t, msg.HTML, "10 minutes")
	assert.Contains(t, msg.HTML, "2026 UT Vibe")
	assert.Contains(t, msg.Text, "482913")
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPMailer(t *testing.T) {
	d := &fakeDialer{}
	mailer := &SMTPMailer{dialer: d, from: "UT Vibe <noreply@utvibe.app>"}

	require.NoError(t, mailer.Send(context.Background(), Message{To: "a@utexas.edu", Subject: "hi", HTML: "<b>x</b>", Text: "x"}))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"a@utexas.edu"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"UT Vibe <noreply@utvibe.app>"}, d.sent[0].GetHeader("From"))

	d.err = errors.New("connection refused")
	assert.ErrorContains(t, mailer.Send(context.Background(), Message{To: "a@utexas.edu"}), "connection refused")
}

type fakeSES struct {
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESMailer(t *testing.T) {
	fake := &fakeSES{}
	mailer := &SESMailer{client: fake, from: "noreply@utvibe.app"}

	require.NoError(t, mailer.Send(context.Background(), Message{To: "b@utexas.edu", Subject: "Code", HTML: "<p>1</p>", Text: "1"}))
	assert.Equal(t, "noreply@utvibe.app", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"b@utexas.edu"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Code", aws.ToString(fake.input.Message.Subject.Data))
}

func TestNew_SelectsDriver(t *testing.T) {
	m, err := New(context.Background(), &config.Config{MailDriver: "log"})
	require.NoError(t, err)
	assert.IsType(t, LogMailer{}, m)

	m, err = New(context.Background(), &config.Config{MailDriver: "smtp", SMTPHost: "localhost", SMTPPort: 1025})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = New(context.Background(), &config.Config{MailDriver: "pigeon"})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, m.Send(context.Background(), Message{To: "c@utexas.edu", Subject: "s", Text: "code 123456"}))
	assert.Contains(t, buf.String(), "c@utexas.edu")
	assert.Contains(t, buf.String(), "code 123456")
}
