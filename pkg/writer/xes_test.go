package writer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/pkg/parser"
)

func sampleLog() *model.Log {
	b := model.NewBuilder()
	ts := time.Date(2016, 1, 4, 9, 0, 0, 0, time.UTC).UnixNano()
	b.Add(&model.Event{
		CaseID:    "Application_1",
		Activity:  "A_Create Application",
		Timestamp: ts,
		Resource:  "User_1",
		Lifecycle: "complete",
		Attributes: []model.Attribute{
			{Key: "case:LoanGoal", Value: "Car", Type: model.AttrTypeString},
		},
	})
	b.Add(&model.Event{
		CaseID:    "Application_1",
		Activity:  "A_Submitted",
		Timestamp: ts + int64(time.Hour),
		Lifecycle: "complete",
	})
	b.AddCase("Application_2")
	return b.Build()
}

func TestXESWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewXESWriter(&buf)
	if err := w.WriteLog(context.Background(), sampleLog()); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p := parser.NewXESParser(parser.DefaultConfig())
	events := make(chan *model.Event, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		errCh <- p.Parse(context.Background(), &buf, events)
	}()

	b := model.NewBuilder()
	for e := range events {
		if e.CaseOnly {
			b.AddCase(e.CaseID)
			continue
		}
		b.Add(e)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Parse: %v", err)
	}

	log := b.Build()
	if len(log.Cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(log.Cases))
	}

	c := log.Cases[0]
	if c.ID != "Application_1" || len(c.Events) != 2 {
		t.Fatalf("case = %q with %d events", c.ID, len(c.Events))
	}
	if c.Events[0].Activity != "A_Create Application" {
		t.Errorf("activity = %q", c.Events[0].Activity)
	}
	if c.Events[0].Resource != "User_1" {
		t.Errorf("resource = %q", c.Events[0].Resource)
	}
	if got, ok := c.Attr("LoanGoal"); !ok || got != "Car" {
		t.Errorf("LoanGoal = %q, %v", got, ok)
	}
	if log.Cases[1].ID != "Application_2" || len(log.Cases[1].Events) != 0 {
		t.Errorf("empty case not preserved: %+v", log.Cases[1])
	}
}

func TestXESWriterEscapesMarkup(t *testing.T) {
	b := model.NewBuilder()
	b.Add(&model.Event{
		CaseID:    "c<1>",
		Activity:  `O_Sent & "accepted"`,
		Timestamp: 1,
	})

	var buf bytes.Buffer
	w := NewXESWriter(&buf)
	if err := w.WriteLog(context.Background(), b.Build()); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, `value="O_Sent & `) {
		t.Error("unescaped ampersand in output")
	}
	if !strings.Contains(out, "O_Sent &amp; &quot;accepted&quot;") {
		t.Errorf("expected escaped activity, got:\n%s", out)
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]CompressionType{
		"snappy": CompressionSnappy,
		"gzip":   CompressionGzip,
		"zstd":   CompressionZstd,
		"":       CompressionNone,
		"bogus":  CompressionNone,
	}
	for in, want := range cases {
		if got := ParseCompression(in); got != want {
			t.Errorf("ParseCompression(%q) = %v, want %v", in, got, want)
		}
	}
}
