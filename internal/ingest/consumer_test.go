package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/standupstack/pulse-engine/internal/models"
)

type fakeReader struct {
	msgs      []kafka.Message
	idx       int
	committed []int64
}

func (f *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if f.idx >= len(f.msgs) {
		return kafka.Message{}, io.EOF
	}
	msg := f.msgs[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeProcessor struct {
	seen []models.Submission
	err  error
}

func (f *fakeProcessor) Process(_ context.Context, sub models.Submission) (*models.ProcessingResult, error) {
	f.seen = append(f.seen, sub)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProcessingResult{ID: "res", SubmissionID: sub.ID}, nil
}

func message(offset int64, sub models.Submission) kafka.Message {
	value, _ := json.Marshal(sub)
	return kafka.Message{Offset: offset, Value: value}
}

func TestRunProcessesAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(1, models.Submission{ID: "sub-1", TeamID: "team-a", RawText: "did things", InputMode: models.InputModeText}),
		message(2, models.Submission{ID: "sub-2", TeamID: "team-a", RawText: "more things", InputMode: models.InputModeText}),
	}}
	processor := &fakeProcessor{}
	c := &Consumer{reader: reader, processor: processor, logger: slog.Default()}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(processor.seen) != 2 {
		t.Fatalf("expected 2 processed submissions, got %d", len(processor.seen))
	}
	if len(reader.committed) != 2 || reader.committed[1] != 2 {
		t.Errorf("expected both offsets committed, got %v", reader.committed)
	}
}

func TestRunSkipsMalformedMessages(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 5, Value: []byte("not json")},
		message(6, models.Submission{ID: "sub-3", TeamID: "team-b", RawText: "ok text", InputMode: models.InputModeText}),
	}}
	processor := &fakeProcessor{}
	c := &Consumer{reader: reader, processor: processor, logger: slog.Default()}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(processor.seen) != 1 || processor.seen[0].ID != "sub-3" {
		t.Errorf("malformed message must be skipped, processed %+v", processor.seen)
	}
	if len(reader.committed) != 2 {
		t.Errorf("malformed message must still be committed, got %v", reader.committed)
	}
}

func TestRunCommitsFailedProcessing(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(9, models.Submission{ID: "sub-4", TeamID: "team-c", InputMode: models.InputModeVoice}),
	}}
	processor := &fakeProcessor{err: errors.New("transcription failed")}
	c := &Consumer{reader: reader, processor: processor, logger: slog.Default()}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(reader.committed) != 1 {
		t.Errorf("failed processing must not wedge the partition, got %v", reader.committed)
	}
}
