package writer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tracelens/tracelens/internal/model"
)

// xesTimestampLayout is the timestamp form emitted on time:timestamp
// attributes.
const xesTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// XESWriter writes a log back out as XES XML. Used for derived logs:
// filtered cases, combined activity labels, arrival logs.
type XESWriter struct {
	w      *bufio.Writer
	closed bool
}

// NewXESWriter creates an XES writer over output.
func NewXESWriter(output io.Writer) *XESWriter {
	return &XESWriter{w: bufio.NewWriterSize(output, 64*1024)}
}

// WriteLog implements the Writer interface. Empty cases are written as
// traces carrying only their case identifier.
func (x *XESWriter) WriteLog(ctx context.Context, log *model.Log) error {
	x.w.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	x.w.WriteString(`<log xes.version="1849.2016" xes.features="nested-attributes">` + "\n")
	x.w.WriteString("\t" + `<extension name="Concept" prefix="concept" uri="http://www.xes-standard.org/concept.xesext"/>` + "\n")
	x.w.WriteString("\t" + `<extension name="Time" prefix="time" uri="http://www.xes-standard.org/time.xesext"/>` + "\n")
	x.w.WriteString("\t" + `<extension name="Organizational" prefix="org" uri="http://www.xes-standard.org/org.xesext"/>` + "\n")
	x.w.WriteString("\t" + `<extension name="Lifecycle" prefix="lifecycle" uri="http://www.xes-standard.org/lifecycle.xesext"/>` + "\n")

	for _, c := range log.Cases {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := x.writeTrace(c); err != nil {
			return err
		}
	}

	x.w.WriteString("</log>\n")
	return x.w.Flush()
}

func (x *XESWriter) writeTrace(c *model.Case) error {
	x.w.WriteString("\t<trace>\n")
	x.attr(2, "string", model.KeyActivity, c.ID)
	for _, a := range c.Attributes {
		if a.Key == model.KeyActivity {
			continue
		}
		x.attr(2, a.Type.String(), a.Key, a.Value)
	}

	for i := range c.Events {
		e := &c.Events[i]
		x.w.WriteString("\t\t<event>\n")
		x.attr(3, "string", model.KeyActivity, e.Activity)
		if e.Timestamp != 0 {
			ts := time.Unix(0, e.Timestamp).UTC().Format(xesTimestampLayout)
			x.attr(3, "date", model.KeyTimestamp, ts)
		}
		if e.Resource != "" {
			x.attr(3, "string", model.KeyResource, e.Resource)
		}
		if e.Lifecycle != "" {
			x.attr(3, "string", model.KeyLifecycle, e.Lifecycle)
		}
		for _, a := range e.Attributes {
			x.attr(3, a.Type.String(), a.Key, a.Value)
		}
		x.w.WriteString("\t\t</event>\n")
	}

	x.w.WriteString("\t</trace>\n")
	return nil
}

// attr writes one XES attribute element at the given indent depth.
func (x *XESWriter) attr(depth int, elem, key, value string) {
	x.w.WriteString(strings.Repeat("\t", depth))
	fmt.Fprintf(x.w, `<%s key="%s" value="%s"/>`+"\n", elem, escapeXML(key), escapeXML(value))
}

// Close flushes the buffered output.
func (x *XESWriter) Close() error {
	if x.closed {
		return nil
	}
	x.closed = true
	return x.w.Flush()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
