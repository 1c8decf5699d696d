package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkin-calls/pkg/logger"
)

var (
	ErrPatientNotFound = errors.New("calls: patient not found")
	ErrInvalidPhone    = errors.New("calls: invalid phone number")
)

// Originator places an outbound call with the telephony provider.
type Originator interface {
	Originate(ctx context.Context, req OriginateRequest) (OriginateResult, error)
}

type OriginateRequest struct {
	To                string
	VoiceURL          string
	StatusCallbackURL string
}

type OriginateResult struct {
	CallSID string
	Status  string
}

type TriggerRequest struct {
	UserID    string `json:"-"`
	PatientID string `json:"patient_id"`
}

type TriggerResult struct {
	CallSID string `json:"call_sid"`
	CallID  string `json:"call_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Service starts check-in calls on behalf of family members.
type Service struct {
	repo       Repository
	originator Originator
	baseURL    string

	Now func() time.Time
}

func NewService(repo Repository, originator Originator, baseURL string) *Service {
	return &Service{repo: repo, originator: originator, baseURL: strings.TrimRight(baseURL, "/")}
}

// Trigger originates a call to the patient and records it as initiated.
//
// The patient must belong to req.UserID; otherwise ErrPatientNotFound is returned
// so ownership is not leaked. Once the provider accepted the call, a failed insert
// is logged and the call is still reported as started.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (TriggerResult, error) {
	if strings.TrimSpace(req.PatientID) == "" || strings.TrimSpace(req.UserID) == "" {
		return TriggerResult{}, ErrInvalidArgument
	}
	if s.repo == nil || s.originator == nil {
		return TriggerResult{}, errors.New("calls: service not configured")
	}

	p, err := s.repo.GetPatient(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TriggerResult{}, ErrPatientNotFound
		}
		return TriggerResult{}, err
	}
	if p.FamilyMemberID != req.UserID {
		return TriggerResult{}, ErrPatientNotFound
	}

	l := logger.From(ctx).With("patient_id", p.ID)
	to, err := FormatPhoneNumber(p.PhoneNumber)
	if err != nil {
		l.Warn("patient phone number unusable", "err", err)
		return TriggerResult{}, err
	}
	l.Info("originating call", "to", to)

	res, err := s.originator.Originate(ctx, OriginateRequest{
		To:                to,
		VoiceURL:          s.baseURL + "/voice/initial",
		StatusCallbackURL: s.baseURL + "/status",
	})
	if err != nil {
		return TriggerResult{}, fmt.Errorf("calls: originate: %w", err)
	}
	l = l.With("call_sid", res.CallSID)

	now := s.now()
	rec, err := s.repo.Insert(ctx, Call{
		PatientID: p.ID,
		CallSID:   res.CallSID,
		Status:    CallStatusInitiated,
		StartTime: &now,
		ResponseData: ResponseData{
			PatientName: p.FullName(),
		},
	})
	if err != nil {
		l.Error("insert call record failed; call continues", "err", err)
	}

	return TriggerResult{
		CallSID: res.CallSID,
		CallID:  rec.ID,
		Status:  res.Status,
		Message: "Call initiated to " + p.FullName(),
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
