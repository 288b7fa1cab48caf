package docker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ahmetb/go-cursor"
	orderedmap "github.com/wk8/go-ordered-map"
)

const (
	layerMessagePrefix = "‣"
	errorPrefix        = "[ERROR]"
)

// StreamAuxMessage contains the aux data of an engine status stream message
type StreamAuxMessage struct {
	ID string `json:"ID"`
}

func (m *StreamAuxMessage) String() string {
	if m.ID != "" {
		return fmt.Sprintf(" %s %s", layerMessagePrefix, m.ID)
	}
	return ""
}

// StreamErrorDetailMessage contains the error detail of an engine status
// stream message
type StreamErrorDetailMessage struct {
	Message string `json:"message"`
}

func (m *StreamErrorDetailMessage) String() string {
	if m.Message != "" {
		return fmt.Sprintf("%s %s", errorPrefix, m.Message)
	}
	return ""
}

// StreamMessage is one line of the engine's JSON status stream, as produced
// by image pulls
type StreamMessage struct {
	Aux         *StreamAuxMessage         `json:"aux"`
	ErrorDetail *StreamErrorDetailMessage `json:"errorDetail"`
	// ID identifies the layer the message belongs to
	ID       string `json:"id"`
	Progress string `json:"progress"`
	Status   string `json:"status"`
	Stream   string `json:"stream"`
}

func (m *StreamMessage) String() string {
	if m.Status != "" {
		str := fmt.Sprintf("%s ", layerMessagePrefix)
		if m.ID != "" {
			str = fmt.Sprintf("%s %s: ", str, strings.TrimSpace(m.ID))
		}
		str = fmt.Sprintf("%s %s ", str, strings.TrimSuffix(m.Status, "\n"))
		return str
	}
	if m.Stream != "" {
		return strings.TrimSpace(m.Stream)
	}
	if m.Aux != nil {
		return m.Aux.String()
	}
	if m.ErrorDetail != nil {
		return m.ErrorDetail.String()
	}

	return ""
}

// ProgressString returns the progress bar
func (m *StreamMessage) ProgressString() string {
	if m.Progress != "" {
		return strings.TrimSpace(m.Progress)
	}
	return ""
}

// RenderStream collapses the engine's JSON status stream into readable
// output, overriding per-layer progress lines in place the way the engine's
// own CLI does.
func RenderStream(statusOutput io.Reader) ([]byte, error) {
	writer := new(bytes.Buffer)
	scanner := bufio.NewScanner(statusOutput)
	lineBefore := ""
	lines := orderedmap.New()
	numLayers := 0

	for scanner.Scan() {
		streamMessage := &StreamMessage{}
		line := scanner.Bytes()

		if err := json.Unmarshal(line, &streamMessage); err != nil {
			return nil, err
		}

		streamMessageStr := streamMessage.String()
		if streamMessageStr != lineBefore && streamMessageStr != "" {
			if streamMessage.ID != "" {
				// override layer outputs on pull messages
				fmt.Fprintf(writer, "%s%s\n", cursor.MoveUp(numLayers+1), cursor.ClearEntireLine())

				lines.Set(streamMessage.ID, fmt.Sprint(streamMessage.String(), streamMessage.ProgressString()))
				for line := lines.Oldest(); line != nil; line = line.Next() {
					fmt.Fprintf(writer, "%s%s\n", line.Value, cursor.ClearLineRight())
				}
				numLayers = lines.Len()
			} else {
				fmt.Fprintf(writer, "%s%s\n", streamMessage.String(), streamMessage.ProgressString())
				lines = orderedmap.New()
				numLayers = 0
			}
		}

		lineBefore = streamMessageStr
	}

	return writer.Bytes(), nil
}
