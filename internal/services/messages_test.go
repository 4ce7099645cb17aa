package services

import (
	"context"
	"testing"

	"github.com/harentsoaR/hospital-api/internal/repository"
)

func TestMessageService_Send(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewMessageService(store.Messages)
	svc.now = fixedNow

	form := MessageForm{
		FirstName: "Alice",
		LastName:  "Walker",
		Email:     "alice@example.com",
		Phone:     "03001234567",
		Message:   "Do you accept walk-in patients?",
	}
	msg, err := svc.Send(context.Background(), form)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID.IsZero() || !msg.CreatedAt.Equal(testNow) {
		t.Errorf("unexpected stored message %+v", msg)
	}
	if got := store.Messages.All(); len(got) != 1 || got[0].Message != form.Message {
		t.Errorf("unexpected messages %+v", got)
	}

	tests := []struct {
		name   string
		mutate func(*MessageForm)
		msg    string
	}{
		{"missing email", func(m *MessageForm) { m.Email = "" }, MsgIncompleteForm},
		{"short message", func(m *MessageForm) { m.Message = "hello" }, "Message Must Contain At Least 10 Characters!"},
		{"short last name", func(m *MessageForm) { m.LastName = "Wu" }, "Last Name Must Contain At Least 3 Characters!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := form
			tt.mutate(&f)
			_, err := svc.Send(context.Background(), f)
			assertKind(t, err, KindValidation, tt.msg)
		})
	}
	if len(store.Messages.All()) != 1 {
		t.Error("rejected messages must not be stored")
	}
}
