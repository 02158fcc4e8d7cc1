package recog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"voxrelay/internal/relay"
	"voxrelay/pkg/logger"

	"go.uber.org/zap"
)

const (
	// FailureText replaces the message text when a job cannot complete.
	FailureText = "Failed to recognize voice content."
	// NoEnginesText is published for a command when no engine is configured.
	NoEnginesText = "No speech recognition engine is configured."

	DefaultPublishTimeout = 30 * time.Second
)

// ErrMalformedEvent is returned by Process for events it cannot classify.
var ErrMalformedEvent = errors.New("malformed event")

// ErrClosed is returned by Close when called more than once.
var ErrClosed = errors.New("coordinator closed")

// Options tunes a Coordinator.
type Options struct {
	// Language is the hint passed to every engine. Empty selects each
	// engine's own default.
	Language string
	// KeepMedia keeps the audio attached to the published edit.
	KeepMedia bool
	// TempDir holds temporary audio files. Empty uses os.TempDir.
	TempDir        string
	PublishTimeout time.Duration
}

// Coordinator is the host hook. It turns qualifying events into background
// jobs and publishes one annotated edit per job.
type Coordinator struct {
	classifier *Classifier
	dispatcher *Dispatcher
	publisher  relay.Publisher
	opts       Options

	aggregate func([]Report) string

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders wg.Add in Process against Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewCoordinator(classifier *Classifier, dispatcher *Dispatcher, publisher relay.Publisher, opts Options) *Coordinator {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		classifier: classifier,
		dispatcher: dispatcher,
		publisher:  publisher,
		opts:       opts,
		aggregate:  Aggregate,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Process inspects one inbound event. It returns the event for the host to
// deliver as usual, or nil when the event was a transcription command that
// should not be delivered. Recognition happens after Process returns.
func (c *Coordinator) Process(ctx context.Context, event *relay.Message) (*relay.Message, error) {
	if event == nil || event.Chat == nil {
		return nil, ErrMalformedEvent
	}

	trig := c.classifier.Classify(ctx, event)
	switch trig.Kind {
	case TriggerNone:
		return event, nil
	case TriggerAuto:
		if c.dispatcher.Registry().Empty() {
			logger.Debug("No speech engines, skipping automatic transcription",
				zap.String("message_uid", event.UID))
			return event, nil
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		logger.Warn("Coordinator closed, delivering message without transcription",
			zap.String("message_uid", event.UID),
			zap.Stringer("trigger", trig.Kind))
		return event, nil
	}
	c.wg.Add(1)
	c.mu.Unlock()

	j := newJob(event, trig)
	if err := j.copyAudio(trig.Target.File, c.opts.TempDir); err != nil {
		j.fail(err)
	}

	logger.Info("Transcription job created",
		zap.String("job_id", j.id),
		zap.String("message_uid", j.msg.UID),
		zap.Stringer("trigger", trig.Kind),
		zap.Stringer("state", j.state))

	go c.run(j)

	if trig.SuppressOriginal {
		return nil, nil
	}
	return event, nil
}

func (c *Coordinator) run(j *job) {
	defer c.wg.Done()
	defer func() {
		if err := j.release(); err != nil {
			logger.Warn("Failed to release job audio", zap.String("job_id", j.id), zap.Error(err))
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Transcription job panicked",
				zap.String("job_id", j.id),
				zap.Any("panic", p))
			if !j.published {
				j.fail(fmt.Errorf("panic: %v", p))
				c.publish(j)
			}
		}
	}()

	if j.state != JobFailed {
		c.transcribe(j)
	}
	c.publish(j)
}

func (c *Coordinator) transcribe(j *job) {
	j.state = JobDispatched

	var annotation string
	if c.dispatcher.Registry().Empty() {
		annotation = NoEnginesText
	} else {
		reports := c.dispatcher.Dispatch(c.ctx, j.audioPath, c.opts.Language)
		annotation = c.aggregate(reports)
	}
	j.state = JobAggregated

	text := j.msg.Text
	if text != "" && annotation != "" {
		text += "\n"
	}
	j.msg.Text = Truncate(text+annotation, MaxAnnotationRunes)
}

// publish hands the working copy to the host. A job publishes at most once.
func (c *Coordinator) publish(j *job) {
	if j.published {
		return
	}
	j.published = true

	if !c.opts.KeepMedia {
		j.msg.File = nil
	}
	j.msg.Edit = true
	j.msg.EditMedia = false

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.opts.PublishTimeout)
	defer cancel()

	err := c.publisher.Publish(ctx, j.msg)
	j.state = JobPublished

	if err != nil {
		logger.Error("Failed to publish transcription",
			zap.String("job_id", j.id),
			zap.String("message_uid", j.msg.UID),
			zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("job_id", j.id),
		zap.String("message_uid", j.msg.UID),
		zap.Stringer("state", j.state),
	}
	if j.err != nil {
		fields = append(fields, zap.NamedError("job_error", j.err))
	}
	logger.Info("Transcription published", fields...)
}

// Wait blocks until every in-flight job has published.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops accepting jobs, cancels in-flight engine calls and waits for
// the jobs to publish their results, or for ctx to end. Events processed
// after Close are passed through untouched.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
