// Package lineproto renders extracted values as InfluxDB line protocol.
//
// Every line carries the full topic plus positional tags so that queries can
// group by any level of the topic hierarchy without knowing its depth:
//
//	measurement,topic=foo/bar,topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2,keySegments=0 value=42 1337
package lineproto

import (
	"strconv"
	"strings"

	"github.com/bft-labs/topicflux/internal/payload"
)

// DefaultMeasurement is used when an Encoder has no measurement configured.
const DefaultMeasurement = "measurement"

// maxTailTags is how many topicE tags are emitted, counted from the end.
const maxTailTags = 3

var escaper = strings.NewReplacer(" ", `\ `, ",", `\,`)

// Escape backslash-escapes spaces and commas.
func Escape(s string) string {
	return escaper.Replace(s)
}

// TopicTags returns the positional tags of a topic: topic1..topicN from the
// start, up to three topicE tags from the end and the topicSegments count.
func TopicTags(topic string) string {
	parts := strings.Split(Escape(topic), "/")

	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("topic")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('=')
		b.WriteString(p)
	}
	for i := 0; i < maxTailTags && i < len(parts); i++ {
		b.WriteString(",topicE")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('=')
		b.WriteString(parts[len(parts)-1-i])
	}
	b.WriteString(",topicSegments=")
	b.WriteString(strconv.Itoa(len(parts)))
	return b.String()
}

// KeyTags returns key1..keyN and keySegments for a key path. The root path
// renders as keySegments=0.
func KeyTags(path payload.KeyPath) string {
	var b strings.Builder
	for i, s := range path {
		b.WriteString("key")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('=')
		b.WriteString(Escape(s.String()))
		b.WriteByte(',')
	}
	b.WriteString("keySegments=")
	b.WriteString(strconv.Itoa(len(path)))
	return b.String()
}

// FormatValue renders v in the shortest decimal form that parses back to v.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Encoder turns values into lines.
type Encoder struct {
	// Measurement names the series. Empty means DefaultMeasurement.
	Measurement string
}

// Encode renders one line per value. Empty values yield no lines.
//
// InfluxDB rejects a whole batch that holds an empty tag value or a line
// broken by a newline, so values whose topic or key path would produce one
// are left out and counted in dropped.
func (e Encoder) Encode(topic string, timestamp int64, values payload.Values) (lines []string, dropped int) {
	if values.Empty() {
		return nil, 0
	}
	pairs := values.Pairs()
	if !writableTopic(topic) {
		return nil, len(pairs)
	}

	measurement := e.Measurement
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	prefix := Escape(measurement) + ",topic=" + Escape(topic) + "," + TopicTags(topic) + ","
	ts := strconv.FormatInt(timestamp, 10)

	lines = make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !writablePath(p.Path) {
			dropped++
			continue
		}
		lines = append(lines, prefix+KeyTags(p.Path)+" value="+FormatValue(p.Value)+" "+ts)
	}
	return lines, dropped
}

func writableTag(s string) bool {
	return s != "" && !strings.ContainsAny(s, "\r\n")
}

func writableTopic(topic string) bool {
	for _, level := range strings.Split(topic, "/") {
		if !writableTag(level) {
			return false
		}
	}
	return true
}

func writablePath(path payload.KeyPath) bool {
	for _, s := range path {
		if !writableTag(s.String()) {
			return false
		}
	}
	return true
}
