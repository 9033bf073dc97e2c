// Package validate applies JSON Schema checks to the two payload shapes
// spec.md leaves to "semantic parameter checks": message/send and
// message/stream params, and PushNotificationConfig. Structural decoding
// (is this valid JSON, does it match the Go struct) happens in the protocol
// package; this package catches the schema-level violations a plain struct
// decode lets through silently (wrong enum value, missing required field,
// malformed URI).
package validate

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
)

const sendMessageParamsSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {
			"type": "object",
			"required": ["role", "parts"],
			"properties": {
				"role": {"enum": ["ROLE_USER", "ROLE_AGENT", "ROLE_UNSPECIFIED"]},
				"parts": {
					"type": "array",
					"minItems": 1,
					"items": {
						"type": "object",
						"required": ["kind"],
						"properties": {
							"kind": {"enum": ["text", "file", "data"]}
						},
						"if": {"properties": {"kind": {"const": "text"}}},
						"then": {"required": ["text"], "properties": {"text": {"type": "string", "minLength": 1}}}
					}
				}
			}
		},
		"configuration": {
			"type": "object",
			"properties": {
				"historyLength": {"type": "integer", "minimum": 0},
				"blocking": {"type": "boolean"}
			}
		}
	}
}`

const pushNotificationConfigSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["url"],
	"properties": {
		"url": {"type": "string", "format": "uri", "minLength": 1},
		"token": {"type": "string"},
		"authentication": {
			"type": "object",
			"properties": {
				"schemes": {"type": "array", "items": {"type": "string"}},
				"credentials": {"type": "string"}
			}
		}
	}
}`

var (
	once       sync.Once
	sendMsgSch *jsonschema.Schema
	pushCfgSch *jsonschema.Schema
	compileErr error
)

func compile() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("send_message_params.json", bytes.NewReader([]byte(sendMessageParamsSchema))); err != nil {
		compileErr = err
		return
	}
	if err := c.AddResource("push_notification_config.json", bytes.NewReader([]byte(pushNotificationConfigSchema))); err != nil {
		compileErr = err
		return
	}
	sendMsgSch, compileErr = c.Compile("send_message_params.json")
	if compileErr != nil {
		return
	}
	pushCfgSch, compileErr = c.Compile("push_notification_config.json")
}

// SendMessageParams validates the raw params of a message/send or
// message/stream JSON-RPC call (or the equivalent REST body) against the
// message/parts shape spec.md §3 describes.
func SendMessageParams(raw json.RawMessage) error {
	once.Do(compile)
	if compileErr != nil {
		return errors.Wrap(errors.KindInternalError, "compiling schema", compileErr)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(errors.KindInvalidParams, "decoding params", err)
	}
	if err := sendMsgSch.Validate(inst); err != nil {
		return errors.Wrap(errors.KindInvalidParams, "params failed schema validation", err)
	}
	return nil
}

// PushNotificationConfig validates a PushNotificationConfig payload (url,
// token, authentication) the way TheApeMachine-a2a-go's
// TaskManager.SetPushNotification does before rejecting it as unsupported.
func PushNotificationConfig(raw json.RawMessage) error {
	once.Do(compile)
	if compileErr != nil {
		return errors.Wrap(errors.KindInternalError, "compiling schema", compileErr)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(errors.KindInvalidParams, "decoding push notification config", err)
	}
	if err := pushCfgSch.Validate(inst); err != nil {
		return errors.Wrap(errors.KindInvalidParams, "push notification config failed schema validation", err)
	}
	return nil
}
