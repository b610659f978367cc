package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/command.schema.json
var schemaFS embed.FS

const commandSchemaURL = "https://factorycraft.ai/schemas/command.json"

// CommandMsg is the JSON form of one player command or tick request.
// Payload fields are pointers where the zero value is meaningful.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	X *int `json:"x,omitempty"`
	Y *int `json:"y,omitempty"`

	ID            string `json:"id,omitempty"`
	MachineID     string `json:"machine_id,omitempty"`
	RecipeID      string `json:"recipe_id,omitempty"`
	GeneratorType string `json:"generator_type,omitempty"`

	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity,omitempty"`

	Active *bool `json:"active,omitempty"`
}

// DecodeError carries the protocol error code for a rejected message.
type DecodeError struct {
	Code    string
	Message string
}

func (e *DecodeError) Error() string { return e.Message }

var (
	commandSchemaOnce sync.Once
	commandSchema     *jsonschema.Schema
	commandSchemaErr  error
)

func loadCommandSchema() (*jsonschema.Schema, error) {
	commandSchemaOnce.Do(func() {
		b, err := schemaFS.ReadFile("schemas/command.schema.json")
		if err != nil {
			commandSchemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(commandSchemaURL, bytes.NewReader(b)); err != nil {
			commandSchemaErr = err
			return
		}
		commandSchema, commandSchemaErr = c.Compile(commandSchemaURL)
	})
	return commandSchema, commandSchemaErr
}

// DecodeCommand parses and validates one JSON command. Unknown types fail with
// ErrUnknownCommand before the payload is looked at.
func DecodeCommand(b []byte) (CommandMsg, error) {
	var msg CommandMsg
	base, err := DecodeBase(b)
	if err != nil {
		return msg, &DecodeError{Code: ErrProtoBadRequest, Message: fmt.Sprintf("bad json: %v", err)}
	}
	if !slices.Contains(CommandTypes, base.Type) {
		return msg, &DecodeError{Code: ErrUnknownCommand, Message: fmt.Sprintf("unrecognized command %q", base.Type)}
	}

	s, err := loadCommandSchema()
	if err != nil {
		return msg, &DecodeError{Code: ErrInternal, Message: fmt.Sprintf("command schema: %v", err)}
	}
	doc, err := decodeDocument(bytes.NewReader(b))
	if err != nil {
		return msg, &DecodeError{Code: ErrProtoBadRequest, Message: fmt.Sprintf("bad json: %v", err)}
	}
	if err := s.Validate(doc); err != nil {
		return msg, &DecodeError{Code: ErrProtoBadRequest, Message: fmt.Sprintf("invalid %s: %v", base.Type, err)}
	}

	if err := json.Unmarshal(b, &msg); err != nil {
		return msg, &DecodeError{Code: ErrProtoBadRequest, Message: fmt.Sprintf("bad json: %v", err)}
	}
	return msg, nil
}

func EncodeCommand(msg CommandMsg) ([]byte, error) {
	return json.Marshal(msg)
}

func IntPtr(v int) *int    { return &v }
func BoolPtr(v bool) *bool { return &v }

// decodeDocument decodes raw into the generic form Schema.Validate expects.
// Numbers stay json.Number so large integers are checked exactly.
func decodeDocument(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after the top-level value")
	}
	return doc, nil
}
