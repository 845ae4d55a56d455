package lineproto

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/topicflux/internal/payload"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with space", `with\ space`},
		{"a,b", `a\,b`},
		{"a, b", `a\,\ b`},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.input), "Escape(%q)", tt.input)
	}
}

func TestTopicTags(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{
			name:  "short",
			topic: "foo/bar",
			want:  "topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2",
		},
		{
			name:  "long keeps three tail tags",
			topic: "base/foo/bar/test",
			want:  "topic1=base,topic2=foo,topic3=bar,topic4=test,topicE1=test,topicE2=bar,topicE3=foo,topicSegments=4",
		},
		{
			name:  "single segment",
			topic: "sensor",
			want:  "topic1=sensor,topicE1=sensor,topicSegments=1",
		},
		{
			name:  "escaped segments",
			topic: "living room/temp,c",
			want:  `topic1=living\ room,topic2=temp\,c,topicE1=temp\,c,topicE2=living\ room,topicSegments=2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopicTags(tt.topic))
		})
	}
}

func TestKeyTags(t *testing.T) {
	assert.Equal(t, "keySegments=0", KeyTags(nil))
	assert.Equal(t, "key1=a,keySegments=1", KeyTags(payload.KeyPath{payload.KeySegment("a")}))
	assert.Equal(t, `key1=b\ c,key2=3,keySegments=2`, KeyTags(payload.KeyPath{
		payload.KeySegment("b c"),
		payload.IndexSegment(3),
	}))
}

func TestEncode_Single(t *testing.T) {
	lines, dropped := Encoder{}.Encode("foo/bar", 1337, payload.Single(42))
	assert.Zero(t, dropped)
	assert.Equal(t, []string{
		"measurement,topic=foo/bar,topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2,keySegments=0 value=42 1337",
	}, lines)
}

func TestEncode_NestedObject(t *testing.T) {
	values := payload.ExtractBytes([]byte(`{"a":42,"b":{"c":666}}`))
	lines, _ := Encoder{}.Encode("foo/bar", 1337, values)

	require.Len(t, lines, 2)
	assert.Equal(t,
		"measurement,topic=foo/bar,topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2,key1=a,keySegments=1 value=42 1337",
		lines[0])
	assert.Equal(t,
		"measurement,topic=foo/bar,topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2,key1=b,key2=c,keySegments=2 value=666 1337",
		lines[1])
}

func TestEncode_Empty(t *testing.T) {
	lines, dropped := Encoder{}.Encode("foo", 1, payload.Values{})
	assert.Empty(t, lines)
	assert.Zero(t, dropped)

	lines, dropped = Encoder{}.Encode("foo", 1, payload.ExtractBytes([]byte{0xc1}))
	assert.Empty(t, lines)
	assert.Zero(t, dropped)
}

func TestEncode_CustomMeasurement(t *testing.T) {
	lines, _ := Encoder{Measurement: "home sensors"}.Encode("t", 5, payload.Single(0.5))
	require.Len(t, lines, 1)
	assert.Equal(t, `home\ sensors,topic=t,topic1=t,topicE1=t,topicSegments=1,keySegments=0 value=0.5 5`, lines[0])
}

func TestEncode_FloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 42, -3, 13.37, 0.000123, 1e21, 123456.789} {
		text := strconv.FormatFloat(v, 'g', -1, 64)
		lines, _ := Encoder{}.Encode("x", 1, payload.ExtractBytes([]byte(text)))
		require.Len(t, lines, 1, "payload %q", text)

		field := lines[0][len("measurement,topic=x,topic1=x,topicE1=x,topicSegments=1,keySegments=0 value="):]
		field = field[:len(field)-len(" 1")]
		got, err := strconv.ParseFloat(field, 64)
		require.NoError(t, err)
		assert.Equal(t, v, got, "payload %q", text)
	}
}

func TestEncode_DropsUnwritableTags(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		lines   int
		dropped int
	}{
		{name: "trailing slash", topic: "sensors/", payload: "1", dropped: 1},
		{name: "leading slash", topic: "/sensors", payload: `{"a":1,"b":2}`, dropped: 2},
		{name: "empty topic", topic: "", payload: "1", dropped: 1},
		{name: "newline in topic", topic: "a\nb", payload: "1", dropped: 1},
		{name: "empty key", topic: "t", payload: `{"":1,"ok":2}`, lines: 1, dropped: 1},
		{name: "newline in key", topic: "t", payload: `{"a\nb":1,"c":{"d\r":2},"e":3}`, lines: 1, dropped: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, dropped := Encoder{}.Encode(tt.topic, 1, payload.ExtractBytes([]byte(tt.payload)))
			assert.Len(t, lines, tt.lines)
			assert.Equal(t, tt.dropped, dropped)
			for _, l := range lines {
				assert.NotContains(t, l, "=,")
				assert.NotContains(t, l, "\n")
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "13.37", FormatValue(13.37))
	assert.Equal(t, "-0.5", FormatValue(-0.5))
}
