package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONLSource adapts a line-delimited JSON event stream (one InputEvent per
// line) into a capture Source. It is the transport adapter used when an
// external capture agent pipes raw events in; a clean EOF is a normal stop,
// while a malformed line is treated as source loss.
type JSONLSource struct {
	r io.Reader
}

// NewJSONLSource wraps a reader of JSONL-encoded InputEvents.
func NewJSONLSource(r io.Reader) *JSONLSource {
	return &JSONLSource{r: r}
}

// Run decodes events until EOF, decode failure, or context cancellation.
func (s *JSONLSource) Run(ctx context.Context, emit func(schemas.InputEvent)) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev schemas.InputEvent
		if err := json.UnmarshalFromString(line, &ev); err != nil {
			return fmt.Errorf("capture: malformed event at line %d: %w", lineNo, err)
		}
		emit(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("capture: read event stream: %w", err)
	}
	return nil
}
