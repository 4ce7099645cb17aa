package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
)

// MessageForm is a contact-form submission.
type MessageForm struct {
	FirstName string `json:"firstName" validate:"min=3"`
	LastName  string `json:"lastName" validate:"min=3"`
	Email     string `json:"email" validate:"email"`
	Phone     string `json:"phone" validate:"len=11,digits"`
	Message   string `json:"message" validate:"min=10"`
}

type MessageService struct {
	messages repository.MessageRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewMessageService(messages repository.MessageRepository) *MessageService {
	return &MessageService{messages: messages, validate: NewValidator(), now: time.Now}
}

// Send validates and stores a contact message.
func (s *MessageService) Send(ctx context.Context, form MessageForm) (*models.Message, error) {
	for _, p := range []*string{&form.FirstName, &form.LastName, &form.Email, &form.Phone, &form.Message} {
		*p = strings.TrimSpace(*p)
	}
	if !allSet(form.FirstName, form.LastName, form.Email, form.Phone, form.Message) {
		return nil, validationError(MsgIncompleteForm)
	}
	if err := s.validate.Struct(&form); err != nil {
		return nil, describe(err)
	}
	msg := &models.Message{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		Message:   form.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}
