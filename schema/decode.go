package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/model"
)

// ErrMalformedOutput indicates the model output could not be decoded into the
// expected structure even after the repair attempt.
var ErrMalformedOutput = errors.New("schema: malformed model output")

// ExtractJSON strips markdown code fences and surrounding prose, returning the
// first top-level JSON object found in the text.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object")
}

// Unmarshal decodes a JSON object embedded in free-form model text into v.
func Unmarshal(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// Decoder asks a model for a structured answer and parses it. A malformed
// first answer triggers exactly one repair round that echoes the parse error
// and the offending output back to the model; a second failure is terminal.
type Decoder struct {
	model model.Model
}

// NewDecoder builds a Decoder on top of the given model.
func NewDecoder(m model.Model) *Decoder {
	return &Decoder{model: m}
}

// Decode runs the instructions + contents through the model and unmarshals the
// answer into v.
func (d *Decoder) Decode(ctx context.Context, instructions string, contents []core.Content, v any) error {
	text, err := d.complete(ctx, instructions, contents)
	if err != nil {
		return err
	}

	firstErr := Unmarshal(text, v)
	if firstErr == nil {
		return nil
	}

	repair := fmt.Sprintf(
		"Your previous answer could not be parsed: %v\n\nPrevious answer:\n%s\n\nAnswer again with only the JSON object, no surrounding text.",
		firstErr, text,
	)
	retryContents := append(append([]core.Content{}, contents...), core.Content{
		Role:  "user",
		Parts: []core.Part{core.TextPart{Text: repair}},
	})

	text, err = d.complete(ctx, instructions, retryContents)
	if err != nil {
		return err
	}
	if err := Unmarshal(text, v); err != nil {
		return fmt.Errorf("after repair attempt: %w", err)
	}
	return nil
}

// complete performs a non-streaming model call and returns the full text.
func (d *Decoder) complete(ctx context.Context, instructions string, contents []core.Content) (string, error) {
	respCh, errCh := d.model.Generate(ctx, model.Request{
		Instructions: instructions,
		Contents:     contents,
	})

	var builder strings.Builder
	for resp := range respCh {
		if resp.Partial {
			continue
		}
		for _, p := range resp.Content.Parts {
			if tp, ok := p.(core.TextPart); ok {
				builder.WriteString(tp.Text)
			}
		}
	}
	if err := <-errCh; err != nil {
		return "", fmt.Errorf("schema: model call failed: %w", err)
	}
	return builder.String(), nil
}
