package telephony

import (
	"context"
	"errors"
	"testing"

	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"checkin-calls/internal/calls"
)

type fakeCallCreator struct {
	got  *twilioApi.CreateCallParams
	resp *twilioApi.ApiV2010Call
	err  error
}

func (f *fakeCallCreator) CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error) {
	f.got = params
	return f.resp, f.err
}

func TestTwilioOriginator_Originate(t *testing.T) {
	sid := "CA42"
	fake := &fakeCallCreator{resp: &twilioApi.ApiV2010Call{Sid: &sid}}
	o := &TwilioOriginator{api: fake, from: "+15550000000"}

	res, err := o.Originate(context.Background(), calls.OriginateRequest{
		To:                "+15551234567",
		VoiceURL:          "https://example.test/voice/initial",
		StatusCallbackURL: "https://example.test/status",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CallSID != "CA42" {
		t.Fatalf("unexpected result %+v", res)
	}

	p := fake.got
	if *p.To != "+15551234567" || *p.From != "+15550000000" || *p.Url != "https://example.test/voice/initial" {
		t.Fatalf("unexpected numbers/url: %v %v %v", *p.To, *p.From, *p.Url)
	}
	if *p.StatusCallback != "https://example.test/status" || len(*p.StatusCallbackEvent) != 4 {
		t.Fatalf("unexpected status callback config")
	}
	if *p.MachineDetection != "Enable" || *p.MachineDetectionTimeout != 3 {
		t.Fatalf("unexpected machine detection config")
	}
}

func TestTwilioOriginator_InvalidNumber(t *testing.T) {
	fake := &fakeCallCreator{err: &client.TwilioRestError{Code: 21211, Message: "Invalid 'To' Phone Number", Status: 400}}
	o := &TwilioOriginator{api: fake, from: "+15550000000"}

	_, err := o.Originate(context.Background(), calls.OriginateRequest{To: "+1"})
	if !errors.Is(err, calls.ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestTwilioOriginator_MissingSid(t *testing.T) {
	o := &TwilioOriginator{api: &fakeCallCreator{resp: &twilioApi.ApiV2010Call{}}}
	if _, err := o.Originate(context.Background(), calls.OriginateRequest{To: "+15551234567"}); err == nil {
		t.Fatalf("expected error for response without sid")
	}
}

func TestTwilioOriginator_OtherError(t *testing.T) {
	fake := &fakeCallCreator{err: &client.TwilioRestError{Code: 20003, Message: "Authenticate", Status: 401}}
	o := &TwilioOriginator{api: fake}

	_, err := o.Originate(context.Background(), calls.OriginateRequest{To: "+15551234567"})
	if err == nil || errors.Is(err, calls.ErrInvalidPhone) {
		t.Fatalf("expected a generic error, got %v", err)
	}
}
