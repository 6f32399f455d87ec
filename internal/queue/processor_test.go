package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailroom-io/mailroom/internal/mailer"
	"github.com/mailroom-io/mailroom/internal/queue"
)

// recorder keeps a cross-stub ordering log so tests can assert that a
// message is never acknowledged before its send has returned.
type recorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *recorder) add(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// --- stub message source ---

// stubSource serves a fixed set of messages; once drained it cancels the
// run context so Run returns like a real cooperative shutdown.
type stubSource struct {
	mu        sync.Mutex
	fetches   []fetchResult
	committed []kafka.Message
	cancel    context.CancelFunc
	rec       *recorder
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (s *stubSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fetches) == 0 {
		s.cancel()
		return kafka.Message{}, context.Canceled
	}
	f := s.fetches[0]
	s.fetches = s.fetches[1:]
	return f.msg, f.err
}

func (s *stubSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		s.rec.add("commit")
	}
	s.committed = append(s.committed, msgs...)
	return nil
}

// --- stub transport ---

type stubTransport struct {
	mu   sync.Mutex
	sent []mailer.Transmission
	errs []error // error per call; nil entries (and calls beyond) succeed
	rec  *recorder
}

func (t *stubTransport) Send(_ context.Context, tr mailer.Transmission) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rec != nil {
		t.rec.add("send")
	}
	call := len(t.sent)
	t.sent = append(t.sent, tr)
	if call < len(t.errs) {
		return t.errs[call]
	}
	return nil
}

// --- helpers ---

func message(t *testing.T, req queue.DeliveryRequest) kafka.Message {
	t.Helper()
	payload, err := req.Encode()
	require.NoError(t, err)
	return kafka.Message{Topic: "emails", Value: payload}
}

func runProcessor(t *testing.T, source *stubSource, transport *stubTransport, onError queue.ErrorFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source.cancel = cancel

	p := queue.NewProcessor(queue.ProcessorConfig{
		Source:    source,
		Transport: transport,
		From:      "noreply@mailroom.local",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnError:   onError,
	})
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestProcessor_SuccessAcknowledgesAfterSend(t *testing.T) {
	rec := &recorder{}
	source := &stubSource{
		rec: rec,
		fetches: []fetchResult{{msg: message(t, queue.DeliveryRequest{
			To:      "a@example.com",
			Subject: "Confirmation email",
			Body:    `Please confirm your account by <a href="https://example.com/c">clicking here</a>.`,
		})}},
	}
	transport := &stubTransport{rec: rec}

	var callbackErrs []error
	runProcessor(t, source, transport, func(err error, _ *kafka.Message) {
		callbackErrs = append(callbackErrs, err)
	})

	require.Len(t, transport.sent, 1)
	sent := transport.sent[0]
	assert.Equal(t, "noreply@mailroom.local", sent.From)
	assert.Equal(t, "a@example.com", sent.To)
	assert.Equal(t, "Confirmation email", sent.Subject)
	assert.Contains(t, sent.Body, "clicking here")
	assert.True(t, sent.HTML)

	assert.Len(t, source.committed, 1)
	assert.Empty(t, callbackErrs)
	// The acknowledge must happen strictly after the send returns.
	assert.Equal(t, []string{"send", "commit"}, rec.ops)
}

func TestProcessor_SendErrorLeavesMessageUnacknowledged(t *testing.T) {
	sendErr := errors.New("simulated network error")
	source := &stubSource{
		fetches: []fetchResult{{msg: message(t, queue.DeliveryRequest{
			To: "a@example.com", Subject: "Confirmation email", Body: "hello",
		})}},
	}
	transport := &stubTransport{errs: []error{sendErr}}

	var callbackErrs []error
	runProcessor(t, source, transport, func(err error, msg *kafka.Message) {
		callbackErrs = append(callbackErrs, err)
		assert.NotNil(t, msg)
	})

	assert.Empty(t, source.committed)
	require.Len(t, callbackErrs, 1)
	assert.ErrorIs(t, callbackErrs[0], sendErr)
}

func TestProcessor_SurvivesSendErrorAndContinues(t *testing.T) {
	sendErr := errors.New("smtp unavailable")
	source := &stubSource{
		fetches: []fetchResult{
			{msg: message(t, queue.DeliveryRequest{To: "first@example.com", Subject: "s", Body: "b"})},
			{msg: message(t, queue.DeliveryRequest{To: "second@example.com", Subject: "s", Body: "b"})},
		},
	}
	transport := &stubTransport{errs: []error{sendErr}}

	var callbackErrs []error
	runProcessor(t, source, transport, func(err error, _ *kafka.Message) {
		callbackErrs = append(callbackErrs, err)
	})

	// First message failed, second was still processed and acknowledged.
	require.Len(t, transport.sent, 2)
	require.Len(t, source.committed, 1)
	assert.Equal(t, "second@example.com", transport.sent[1].To)
	require.Len(t, callbackErrs, 1)
	assert.ErrorIs(t, callbackErrs[0], sendErr)
}

func TestProcessor_MalformedPayloadDoesNotCrashLoop(t *testing.T) {
	source := &stubSource{
		fetches: []fetchResult{
			{msg: kafka.Message{Topic: "emails", Value: []byte("}{ definitely not json")}},
			{msg: message(t, queue.DeliveryRequest{To: "ok@example.com", Subject: "s", Body: "b"})},
		},
	}
	transport := &stubTransport{}

	var callbackErrs []error
	runProcessor(t, source, transport, func(err error, _ *kafka.Message) {
		callbackErrs = append(callbackErrs, err)
	})

	// Malformed message: reported once, never sent, never acknowledged.
	require.Len(t, callbackErrs, 1)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "ok@example.com", transport.sent[0].To)
	require.Len(t, source.committed, 1)
}

func TestProcessor_FetchErrorReportedAndLoopContinues(t *testing.T) {
	fetchErr := errors.New("broker unavailable")
	source := &stubSource{
		fetches: []fetchResult{
			{err: fetchErr},
			{msg: message(t, queue.DeliveryRequest{To: "ok@example.com", Subject: "s", Body: "b"})},
		},
	}
	transport := &stubTransport{}

	var callbackErrs []error
	runProcessor(t, source, transport, func(err error, msg *kafka.Message) {
		callbackErrs = append(callbackErrs, err)
		assert.Nil(t, msg)
	})

	require.Len(t, callbackErrs, 1)
	assert.ErrorIs(t, callbackErrs[0], fetchErr)
	require.Len(t, source.committed, 1)
}

func TestProcessor_DefaultErrorHandlerDoesNotPanic(t *testing.T) {
	source := &stubSource{
		fetches: []fetchResult{
			{msg: kafka.Message{Topic: "emails", Value: []byte("bad")}},
		},
	}
	// nil OnError falls back to structured logging.
	runProcessor(t, source, &stubTransport{}, nil)
	assert.Empty(t, source.committed)
}

func TestProcessor_CooperativeShutdownReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &stubSource{cancel: cancel}

	p := queue.NewProcessor(queue.ProcessorConfig{
		Source:    source,
		Transport: &stubTransport{},
		From:      "noreply@mailroom.local",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, p.Run(ctx))
}
