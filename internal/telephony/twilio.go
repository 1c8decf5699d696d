package telephony

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"checkin-calls/internal/calls"
)

// Twilio REST error codes we map to domain errors.
const errCodeInvalidToNumber = 21211

// callCreator is the slice of the Twilio REST API the originator needs.
type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioOriginator places outbound calls through the Twilio REST API.
type TwilioOriginator struct {
	api  callCreator
	from string
}

func NewTwilioOriginator(accountSID, authToken, from string) *TwilioOriginator {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioOriginator{api: rc.Api, from: from}
}

// Originate starts a call with answering machine detection and status callbacks
// for every lifecycle event. The Twilio client does not take a context.
func (o *TwilioOriginator) Originate(ctx context.Context, req calls.OriginateRequest) (calls.OriginateResult, error) {
	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(o.from)
	params.SetUrl(req.VoiceURL)
	params.SetMethod("POST")
	params.SetStatusCallback(req.StatusCallbackURL)
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	params.SetMachineDetection("Enable")
	params.SetMachineDetectionTimeout(3)

	resp, err := o.api.CreateCall(params)
	if err != nil {
		var rerr *client.TwilioRestError
		if errors.As(err, &rerr) && rerr.Code == errCodeInvalidToNumber {
			return calls.OriginateResult{}, fmt.Errorf("%w: %s", calls.ErrInvalidPhone, rerr.Message)
		}
		return calls.OriginateResult{}, fmt.Errorf("twilio create call: %w", err)
	}

	var out calls.OriginateResult
	if resp.Sid != nil {
		out.CallSID = *resp.Sid
	}
	if resp.Status != nil {
		out.Status = fmt.Sprint(*resp.Status)
	}
	if out.CallSID == "" {
		return calls.OriginateResult{}, errors.New("twilio create call: response without sid")
	}
	return out, nil
}
