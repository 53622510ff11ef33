package events

import (
	"context"
	"submission_service/internal/model"
	"submission_service/pkg/utils"
	"time"
)

// Sender is implemented by kafka.Producer.
type Sender interface {
	Send(ctx context.Context, topic string, key []byte, message interface{}) error
}

type SubmissionCreated struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	AssignmentURL string    `json:"assignmentURL"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Publisher emits submission events through a circuit breaker so an
// unreachable broker fails fast instead of stalling every create.
type Publisher struct {
	sender  Sender
	topic   string
	breaker *utils.CircuitBreaker
}

func NewPublisher(sender Sender, topic string) *Publisher {
	return &Publisher{
		sender:  sender,
		topic:   topic,
		breaker: utils.NewCircuitBreaker(3, 30*time.Second),
	}
}

func (p *Publisher) PublishSubmissionCreated(ctx context.Context, s *model.Submission) error {
	event := SubmissionCreated{
		ID:            s.ID,
		Name:          s.Name,
		Email:         s.Email,
		AssignmentURL: s.AssignmentURL,
		CreatedAt:     s.CreatedAt,
	}
	return p.breaker.Execute(func() error {
		return p.sender.Send(ctx, p.topic, []byte(s.ID), event)
	})
}
