package parser

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/tracelens/tracelens/internal/model"
)

// XML element names checked by the state machine.
var (
	xmlTrace  = []byte("trace")
	xmlEvent  = []byte("event")
	xmlString = []byte("string")
	xmlDate   = []byte("date")
	xmlInt    = []byte("int")
	xmlFloat  = []byte("float")
	xmlBool   = []byte("boolean")
)

// XES parser states
type xesState uint8

const (
	stateInit xesState = iota
	stateTrace
	stateEvent
)

// XESParser implements streaming XES parsing using a state machine over
// raw tag chunks. It never builds a DOM; a 31 MB BPI-style log parses in
// one pass with constant memory per event.
type XESParser struct {
	cfg Config
}

// NewXESParser creates a new XES parser.
func NewXESParser(cfg Config) *XESParser {
	return &XESParser{cfg: cfg}
}

// Parse implements the Parser interface.
//
// Trace-level attributes are propagated onto every event of the trace
// with the model.CasePrefix key prefix, matching the flattening
// convention used when event logs are converted to tabular form. A
// trace with a case ID but no events is reported once with CaseOnly set.
func (p *XESParser) Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error {
	reader := bufio.NewReaderSize(r, p.cfg.BufferSize)

	state := stateInit
	var caseID string
	var caseAttrs []model.Attribute
	var current *model.Event
	eventsInTrace := 0

	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		chunk, err := reader.ReadBytes('>')
		if err != nil && err != io.EOF {
			return err
		}
		if len(chunk) == 0 && err == io.EOF {
			break
		}

		line := bytes.TrimSpace(chunk)
		if len(line) != 0 {
			switch {
			case isOpenTag(line, xmlTrace):
				state = stateTrace
				caseID = ""
				caseAttrs = caseAttrs[:0]
				eventsInTrace = 0

			case isCloseTag(line, xmlTrace):
				if eventsInTrace == 0 && caseID != "" {
					marker := &model.Event{CaseID: caseID, CaseOnly: true}
					select {
					case out <- marker:
					case <-ctx.Done():
						return ErrContextCanceled
					}
				}
				state = stateInit
				caseID = ""

			case isOpenTag(line, xmlEvent):
				state = stateEvent
				current = &model.Event{CaseID: caseID}
				if len(caseAttrs) > 0 {
					current.Attributes = append(current.Attributes, caseAttrs...)
				}

			case isCloseTag(line, xmlEvent):
				if current != nil {
					select {
					case out <- current:
					case <-ctx.Done():
						return ErrContextCanceled
					}
					current = nil
					eventsInTrace++
				}
				state = stateTrace

			case state == stateTrace && isAttributeTag(line):
				key, value := extractAttribute(line)
				// concept:name at trace level is the case identifier.
				if key == model.KeyActivity {
					caseID = value
				} else if key != "" {
					caseAttrs = append(caseAttrs, model.Attribute{
						Key:   model.CasePrefix + key,
						Value: value,
						Type:  attributeType(line),
					})
				}

			case state == stateEvent && isAttributeTag(line):
				if current != nil {
					p.applyEventAttribute(line, current)
				}
			}
		}

		if err == io.EOF {
			break
		}
	}

	return nil
}

// applyEventAttribute parses one attribute element into the event.
func (p *XESParser) applyEventAttribute(line []byte, event *model.Event) {
	key, value := extractAttribute(line)
	if key == "" {
		return
	}

	switch key {
	case model.KeyActivity:
		event.Activity = value

	case model.KeyTimestamp:
		if ts, err := parseXESTimestamp(value); err == nil {
			event.Timestamp = ts
		}

	case model.KeyResource:
		event.Resource = value

	case model.KeyLifecycle:
		event.Lifecycle = value

	default:
		event.Attributes = append(event.Attributes, model.Attribute{
			Key:   key,
			Value: value,
			Type:  attributeType(line),
		})
	}
}

// isOpenTag checks if line is an opening tag for the given element.
func isOpenTag(line, element []byte) bool {
	if len(line) < len(element)+2 || line[0] != '<' {
		return false
	}
	if !bytes.HasPrefix(line[1:], element) {
		return false
	}
	next := 1 + len(element)
	if next >= len(line) {
		return true
	}
	c := line[next]
	return c == '>' || c == ' ' || c == '\t'
}

// isCloseTag checks if line is a closing tag for the given element,
// including the self-closing form.
func isCloseTag(line, element []byte) bool {
	if len(line) < len(element)+3 {
		return false
	}
	if line[0] == '<' && line[1] == '/' {
		return bytes.HasPrefix(line[2:], element)
	}
	if line[0] == '<' && bytes.HasPrefix(line[1:], element) {
		return line[len(line)-2] == '/' && line[len(line)-1] == '>'
	}
	return false
}

// isAttributeTag checks if line is an XES attribute element.
func isAttributeTag(line []byte) bool {
	if len(line) < 3 || line[0] != '<' {
		return false
	}
	rest := line[1:]
	return bytes.HasPrefix(rest, xmlString) ||
		bytes.HasPrefix(rest, xmlDate) ||
		bytes.HasPrefix(rest, xmlInt) ||
		bytes.HasPrefix(rest, xmlFloat) ||
		bytes.HasPrefix(rest, xmlBool)
}

// extractAttribute extracts key and value from an XES attribute element.
func extractAttribute(line []byte) (key, value string) {
	return unescapeXML(extractAttrValue(line, keyPrefix)),
		unescapeXML(extractAttrValue(line, valuePrefix))
}

var (
	keyPrefix   = []byte(`key="`)
	valuePrefix = []byte(`value="`)
)

// extractAttrValue extracts a raw XML attribute value.
func extractAttrValue(line, prefix []byte) []byte {
	idx := bytes.Index(line, prefix)
	if idx < 0 {
		return nil
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return nil
	}
	return line[start : start+end]
}

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// unescapeXML resolves the five predefined XML entities. The fast path
// avoids allocation when no entity is present.
func unescapeXML(raw []byte) string {
	if raw == nil {
		return ""
	}
	s := string(raw)
	if !strings.ContainsRune(s, '&') {
		return s
	}
	return xmlUnescaper.Replace(s)
}

// attributeType determines the attribute type from the XML element name.
func attributeType(line []byte) model.AttrType {
	rest := line[1:]
	switch {
	case bytes.HasPrefix(rest, xmlDate):
		return model.AttrTypeTimestamp
	case bytes.HasPrefix(rest, xmlInt):
		return model.AttrTypeInt
	case bytes.HasPrefix(rest, xmlFloat):
		return model.AttrTypeFloat
	case bytes.HasPrefix(rest, xmlBool):
		return model.AttrTypeBool
	default:
		return model.AttrTypeString
	}
}

// xesTimestampFormats are tried in order; the first two cover the BPI
// Challenge logs.
var xesTimestampFormats = []string{
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseXESTimestamp parses an XES timestamp to nanoseconds.
func parseXESTimestamp(value string) (int64, error) {
	for _, format := range xesTimestampFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UnixNano(), nil
		}
	}
	return 0, ErrInvalidTimestamp
}
