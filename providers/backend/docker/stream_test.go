package docker

import (
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestRenderStreamStatuses(t *testing.T) {
	stream := strings.NewReader(strings.Join([]string{
		`{"status":"Pulling from library/debian","id":"stretch-slim"}`,
		`{"status":"Pulling fs layer","id":"a1b2c3"}`,
		`{"status":"Download complete","id":"a1b2c3"}`,
		`{"status":"Status: Downloaded newer image for debian:stretch-slim"}`,
	}, "\n"))

	out, err := RenderStream(stream)
	assert.NilError(t, err)

	rendered := string(out)
	assert.Assert(t, strings.Contains(rendered, "a1b2c3: Download complete"))
	assert.Assert(t, strings.Contains(rendered, "Status: Downloaded newer image"))
}

func TestRenderStreamSkipsRepeats(t *testing.T) {
	stream := strings.NewReader(strings.Join([]string{
		`{"stream":"step one\n"}`,
		`{"stream":"step one\n"}`,
		`{"stream":"step two\n"}`,
	}, "\n"))

	out, err := RenderStream(stream)
	assert.NilError(t, err)
	assert.Equal(t, strings.Count(string(out), "step one"), 1)
}

func TestRenderStreamErrorDetail(t *testing.T) {
	stream := strings.NewReader(`{"errorDetail":{"message":"manifest unknown"}}`)

	out, err := RenderStream(stream)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(out), "manifest unknown"))
}

func TestRenderStreamMalformed(t *testing.T) {
	_, err := RenderStream(strings.NewReader("not json"))
	assert.Assert(t, err != nil)
}
