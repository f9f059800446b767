package intake

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/despamly/despamly/internal/core"
)

// inboundMessage is the NDJSON envelope the transport binding writes, one
// message per line.
type inboundMessage struct {
	MessageID          int64  `json:"message_id"`
	TenantID           int64  `json:"tenant_id"`
	SenderID           int64  `json:"sender_id"`
	SenderName         string `json:"sender_name"`
	Text               string `json:"text"`
	Timestamp          int64  `json:"timestamp"`
	IsReply            bool   `json:"is_reply"`
	ReplyTargetIsStaff bool   `json:"reply_target_is_staff"`
	IsForwarded        bool   `json:"is_forwarded"`
	SenderIsStaff      bool   `json:"sender_is_staff"`
	IsChannelBroadcast bool   `json:"is_channel_broadcast"`
}

// verdictLine is the per-message result written to the output stream.
type verdictLine struct {
	MessageID int64  `json:"message_id"`
	TenantID  int64  `json:"tenant_id"`
	Verdict   string `json:"verdict"`
	Error     string `json:"error,omitempty"`
}

// StdinIntake reads newline-delimited JSON messages from an input stream and
// dispatches them to the pipeline on a bounded worker pool, one logical task
// per message. Verdicts go to the output stream as JSON lines.
type StdinIntake struct {
	pipeline *core.ModerationPipeline
	workers  int
	logger   *zap.Logger

	in  io.Reader
	out io.Writer

	outMu  sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewStdinIntake creates an intake reading from stdin and writing to stdout.
func NewStdinIntake(pipeline *core.ModerationPipeline, workers int, logger *zap.Logger) *StdinIntake {
	return NewStreamIntake(pipeline, workers, logger, os.Stdin, os.Stdout)
}

// NewStreamIntake creates an intake over arbitrary streams. For tests.
func NewStreamIntake(pipeline *core.ModerationPipeline, workers int, logger *zap.Logger, in io.Reader, out io.Writer) *StdinIntake {
	if workers <= 0 {
		workers = 4
	}
	return &StdinIntake{
		pipeline: pipeline,
		workers:  workers,
		logger:   logger,
		in:       in,
		out:      out,
	}
}

// Start launches the reader and worker goroutines.
func (s *StdinIntake) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	messages := make(chan inboundMessage)
	group, gctx := errgroup.WithContext(ctx)
	s.group = group

	group.Go(func() error {
		defer close(messages)
		return s.read(gctx, messages)
	})

	for i := 0; i < s.workers; i++ {
		group.Go(func() error {
			for msg := range messages {
				s.process(gctx, msg)
			}
			return nil
		})
	}

	s.logger.Info("Message intake started", zap.Int("workers", s.workers))
	return nil
}

// Stop cancels the intake and waits for in-flight messages to finish.
func (s *StdinIntake) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		if err := s.group.Wait(); err != nil && err != context.Canceled {
			return err
		}
	}
	s.logger.Info("Message intake stopped")
	return nil
}

func (s *StdinIntake) read(ctx context.Context, messages chan<- inboundMessage) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			s.logger.Warn("Skipping malformed input line", zap.Error(err))
			continue
		}

		select {
		case messages <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input stream: %w", err)
	}
	return nil
}

func (s *StdinIntake) process(ctx context.Context, in inboundMessage) {
	msg := core.Message{
		ID:       in.MessageID,
		TenantID: in.TenantID,
		SenderID: in.SenderID,
		Sender:   in.SenderName,
		Text:     in.Text,
	}
	msgCtx := &core.MessageContext{
		MessageID:          in.MessageID,
		SenderID:           in.SenderID,
		SenderName:         in.SenderName,
		TenantID:           in.TenantID,
		Timestamp:          time.Unix(in.Timestamp, 0),
		IsReply:            in.IsReply,
		ReplyTargetIsStaff: in.ReplyTargetIsStaff,
		IsForwarded:        in.IsForwarded,
		SenderIsStaff:      in.SenderIsStaff,
		IsChannelBroadcast: in.IsChannelBroadcast,
	}

	verdict, err := s.pipeline.Handle(ctx, msg, msgCtx)

	line := verdictLine{
		MessageID: in.MessageID,
		TenantID:  in.TenantID,
		Verdict:   verdict.String(),
	}
	if err != nil {
		line.Error = err.Error()
	}

	encoded, err := json.Marshal(line)
	if err != nil {
		s.logger.Error("Failed to encode verdict", zap.Error(err))
		return
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out, string(encoded))
}
