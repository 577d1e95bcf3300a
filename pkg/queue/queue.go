package queue

import (
	"context"
	"fmt"
	"time"
)

// Messager receives queue-level failures that exhausted their retries.
type Messager interface {
	Notify(ctx context.Context, message string) error
	NotifyWarning(ctx context.Context, err error) error
	NotifyError(ctx context.Context, err error) error
}

// Message is one unit of work. Whoever enqueues it can block on
// WaitForResponse until the processor responds or fails it.
type Message struct {
	ID         string
	CreatedAt  time.Time
	RetryCount int
	Payload    any

	respCh chan any
	errCh  chan error
}

func NewMessage(id string, payload any) *Message {
	return &Message{
		ID:        id,
		CreatedAt: time.Now(),
		Payload:   payload,
		respCh:    make(chan any, 1),
		errCh:     make(chan error, 1),
	}
}

// Respond delivers the processing result to the waiting enqueuer.
func (m *Message) Respond(v any) {
	select {
	case m.respCh <- v:
	default:
	}
}

// Fail delivers a terminal processing error to the waiting enqueuer.
func (m *Message) Fail(err error) {
	select {
	case m.errCh <- err:
	default:
	}
}

// WaitForResponse blocks until the message is processed or ctx expires.
func (m *Message) WaitForResponse(ctx context.Context) (any, error) {
	select {
	case v := <-m.respCh:
		return v, nil
	case err := <-m.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type Processor interface {
	Process(*Message) error
}

// Service is a single-consumer work queue. Messages that fail are requeued up
// to maxRetries times, then failed and reported through the messager.
type Service struct {
	name       string
	queue      chan *Message
	quit       chan bool
	maxRetries int

	ctx context.Context
	wm  Messager
}

func NewService(name string, maxRetries, buffer int, ctx context.Context, wm Messager) *Service {
	return &Service{
		name:       name,
		queue:      make(chan *Message, buffer),
		quit:       make(chan bool),
		maxRetries: maxRetries,
		ctx:        ctx,
		wm:         wm,
	}
}

func (s *Service) Enqueue(message *Message) {
	s.queue <- message
}

func (s *Service) Close() {
	s.quit <- true
}

func (s *Service) Start(p Processor) error {
	for {
		select {
		case message := <-s.queue:
			err := p.Process(message)
			if err != nil {
				if message.RetryCount < s.maxRetries {
					message.RetryCount++

					// the requeue is a self-send from the sole consumer,
					// a blocking send would deadlock on a full buffer
					select {
					case s.queue <- message:
						if len(s.queue) == 1 {
							// the queue was empty, wait a bit to avoid a
							// busy loop
							extraWait := time.Duration(message.RetryCount) * time.Second
							time.Sleep(extraWait)
						}
						continue
					default:
					}
				}

				message.Fail(err)
				s.wm.NotifyError(s.ctx, fmt.Errorf("%s queue: %w", s.name, err))
			}
		case <-s.quit:
			return nil
		}
	}
}
