// Package validation checks conversation-turn payloads submitted by clients
// against both the typed contract and a JSON schema.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

// turnSchema mirrors contracts.Turn. Schema validation catches structural
// problems with a readable message before the typed validator runs.
const turnSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["role", "content"],
  "additionalProperties": false,
  "properties": {
    "role": {"type": "string", "enum": ["user", "assistant"]},
    "content": {"type": "string", "minLength": 1}
  }
}`

var compiledTurnSchema = jsonschema.MustCompileString("turn.schema.json", turnSchema)

// ParseTurn decodes and validates one conversation-turn payload.
func ParseTurn(raw []byte) (contracts.Turn, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return contracts.Turn{}, fmt.Errorf("turn payload is not valid JSON: %w", err)
	}
	if err := compiledTurnSchema.Validate(payload); err != nil {
		return contracts.Turn{}, fmt.Errorf("turn payload rejected by schema: %w", err)
	}

	var turn contracts.Turn
	if err := strictUnmarshal(raw, &turn); err != nil {
		return contracts.Turn{}, err
	}
	if err := turn.Validate(); err != nil {
		return contracts.Turn{}, err
	}
	return turn, nil
}

// ParseTurns decodes an ordered list of turn payloads, failing on the first
// invalid entry.
func ParseTurns(raws [][]byte) ([]contracts.Turn, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	turns := make([]contracts.Turn, 0, len(raws))
	for i, raw := range raws {
		turn, err := ParseTurn(raw)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func strictUnmarshal(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return fmt.Errorf("unexpected trailing JSON payload")
	}
	return nil
}

// RenderTurns summarizes a turn list for logging without dumping content.
func RenderTurns(turns []contracts.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		parts = append(parts, fmt.Sprintf("%s(%d)", turn.Role, len(turn.Content)))
	}
	return strings.Join(parts, ",")
}
