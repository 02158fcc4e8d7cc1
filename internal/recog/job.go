package recog

import (
	"fmt"
	"io"
	"os"
	"voxrelay/internal/relay"

	"github.com/google/uuid"
)

// JobState is the lifecycle position of a transcription job.
type JobState int

const (
	JobCreated JobState = iota
	JobCopied
	JobDispatched
	JobAggregated
	JobPublished
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobCopied:
		return "copied"
	case JobDispatched:
		return "dispatched"
	case JobAggregated:
		return "aggregated"
	case JobPublished:
		return "published"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// job is one transcription of one voice message. It owns its temporary
// audio file and its working copy from creation until release.
type job struct {
	id        string
	kind      TriggerKind
	msg       *relay.Message
	audioPath string
	state     JobState
	published bool
	err       error
}

func newJob(event *relay.Message, trig Trigger) *job {
	// Chat and Author always come from the triggering event. For an automatic
	// trigger the event is the target itself.
	return &job{
		id:    uuid.New().String(),
		kind:  trig.Kind,
		msg:   trig.Target.WorkingCopy(event.Chat, event.Author),
		state: JobCreated,
	}
}

// copyAudio duplicates the target's audio into a temporary file and restores
// the stream offset for the host.
func (j *job) copyAudio(src io.ReadSeeker, dir string) error {
	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to read audio offset: %w", err)
	}
	defer func() { _, _ = src.Seek(pos, io.SeekStart) }()

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind audio: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "voxrelay-*.audio")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	j.audioPath = tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush audio: %w", err)
	}

	j.state = JobCopied
	return nil
}

func (j *job) fail(err error) {
	j.err = err
	j.state = JobFailed
	j.msg.Text = FailureText
}

// release removes the temporary file. It is safe to call more than once.
func (j *job) release() error {
	if j.audioPath == "" {
		return nil
	}
	path := j.audioPath
	j.audioPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp audio: %w", err)
	}
	return nil
}
