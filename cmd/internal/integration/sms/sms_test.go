package sms

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"smallcrm/cmd/internal/config"
)

type fakeTwilio struct {
	params *openapi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = params
	return &openapi.ApiV2010Message{}, f.err
}

func TestTwilioSender_Send(t *testing.T) {
	api := &fakeTwilio{}
	s := &TwilioSender{api: api, from: "+15550000000"}

	if err := s.Send(context.Background(), "+5511999999999", "Reminder"); err != nil {
		t.Fatal(err)
	}
	if *api.params.To != "+5511999999999" || *api.params.From != "+15550000000" || *api.params.Body != "Reminder" {
		t.Fatalf("unexpected params to=%s from=%s body=%s", *api.params.To, *api.params.From, *api.params.Body)
	}

	api.err = errors.New("status 400")
	if err := s.Send(context.Background(), "+1", "x"); err == nil || !strings.HasPrefix(err.Error(), "twilio:") {
		t.Fatalf("expected wrapped twilio error, got %v", err)
	}
}

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, f.err
}

func TestSNSSender_Send(t *testing.T) {
	pub := &fakePublisher{}
	s := &SNSSender{client: pub, senderID: "SMALLCRM"}

	if err := s.Send(context.Background(), "+5511999999999", "Reminder"); err != nil {
		t.Fatal(err)
	}
	if aws.ToString(pub.input.PhoneNumber) != "+5511999999999" || aws.ToString(pub.input.Message) != "Reminder" {
		t.Fatalf("unexpected input %+v", pub.input)
	}
	if aws.ToString(pub.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue) != "SMALLCRM" {
		t.Fatal("expected sender id attribute")
	}

	pub.err = &smithy.GenericAPIError{Code: "InvalidParameter", Message: "bad number"}
	err := s.Send(context.Background(), "123", "x")
	if err == nil || err.Error() != "sns: InvalidParameter - bad number" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.SMSConfig{})
	if err != nil || s.Enabled() {
		t.Fatalf("expected noop sender, got %v, %v", s, err)
	}

	if _, err := New(context.Background(), config.SMSConfig{Provider: "twilio"}); err == nil {
		t.Fatal("expected error for incomplete twilio config")
	}

	s, err = New(context.Background(), config.SMSConfig{
		Provider: "twilio", TwilioAccountSID: "AC1", TwilioAuthToken: "tok", TwilioFrom: "+1555",
	})
	if _, ok := s.(*TwilioSender); err != nil || !ok || !s.Enabled() {
		t.Fatalf("expected twilio sender, got %v, %v", s, err)
	}
}
