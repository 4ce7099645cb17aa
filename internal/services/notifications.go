package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/hospital-api/internal/models"
)

const textbeltURL = "https://textbelt.com/text"

// NotificationService texts patients through the Textbelt API when their
// appointment status changes.
type NotificationService struct {
	apiKey   string
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

// NewNotificationService returns a sender bound to apiKey. An empty key
// turns every send into a logged no-op. An empty endpoint uses Textbelt.
func NewNotificationService(apiKey, endpoint string, timeout time.Duration, log zerolog.Logger) *NotificationService {
	if endpoint == "" {
		endpoint = textbeltURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

func statusMessage(apt *models.Appointment) string {
	switch apt.Status {
	case models.StatusAccepted:
		return fmt.Sprintf("Appointment Confirmed: %s with Dr. %s %s on %s at %s.",
			apt.Department, apt.Doctor.FirstName, apt.Doctor.LastName, apt.AppointmentDate, apt.SelectTime)
	case models.StatusRejected:
		return fmt.Sprintf("Appointment Declined: %s with Dr. %s %s on %s at %s. Please book another time.",
			apt.Department, apt.Doctor.FirstName, apt.Doctor.LastName, apt.AppointmentDate, apt.SelectTime)
	default:
		return fmt.Sprintf("Your %s appointment on %s at %s is now %s.",
			apt.Department, apt.AppointmentDate, apt.SelectTime, apt.Status)
	}
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AppointmentStatusChanged sends the patient an SMS describing the new status.
func (s *NotificationService) AppointmentStatusChanged(ctx context.Context, apt *models.Appointment) error {
	if s.apiKey == "" {
		s.log.Debug().Str("appointment_id", apt.ID.Hex()).Msg("sms skipped: no textbelt key")
		return nil
	}
	if apt.Phone == "" {
		return errors.New("appointment has no phone number")
	}

	body, err := json.Marshal(map[string]string{
		"phone":   apt.Phone,
		"message": statusMessage(apt),
		"key":     s.apiKey,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response (status %d): %w", resp.StatusCode, err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected sms: %s", result.Error)
	}
	s.log.Info().Str("appointment_id", apt.ID.Hex()).Str("status", apt.Status).Msg("status sms sent")
	return nil
}
