package pipe

import (
	"context"
	"strings"
	"testing"

	"github.com/tracelens/tracelens/pkg/parser"
)

const sampleXES = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1849.2016">
	<trace>
		<string key="concept:name" value="Application_1"/>
		<event>
			<string key="concept:name" value="A_Create Application"/>
			<date key="time:timestamp" value="2016-01-04T09:00:00.000+00:00"/>
			<string key="lifecycle:transition" value="complete"/>
		</event>
		<event>
			<string key="concept:name" value="A_Submitted"/>
			<date key="time:timestamp" value="2016-01-04T10:00:00.000+00:00"/>
			<string key="lifecycle:transition" value="complete"/>
		</event>
	</trace>
	<trace>
		<string key="concept:name" value="Application_2"/>
	</trace>
</log>`

func TestLoadFromAssemblesLog(t *testing.T) {
	loader := NewLoader(DefaultConfig())

	log, err := loader.LoadFrom(context.Background(), strings.NewReader(sampleXES), parser.FormatXES)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if len(log.Cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(log.Cases))
	}
	if log.Cases[0].ID != "Application_1" || len(log.Cases[0].Events) != 2 {
		t.Errorf("first case = %q with %d events", log.Cases[0].ID, len(log.Cases[0].Events))
	}
	if log.Cases[1].ID != "Application_2" || len(log.Cases[1].Events) != 0 {
		t.Errorf("empty trace not registered as case: %+v", log.Cases[1])
	}
	if loader.EventsRead() != 2 {
		t.Errorf("EventsRead = %d, want 2", loader.EventsRead())
	}
}

func TestLoadFromCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(DefaultConfig())
	_, err := loader.LoadFrom(ctx, strings.NewReader(sampleXES), parser.FormatXES)
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]parser.Format{
		"log.xes":     parser.FormatXES,
		"log.xes.gz":  parser.FormatXES,
		"events.csv":  parser.FormatCSV,
		"data.CSV":    parser.FormatCSV,
		"notes.txt":   parser.FormatUnknown,
		"archive.tar": parser.FormatUnknown,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}
