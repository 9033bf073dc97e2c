package protocol

import (
	"context"
	"encoding/json"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/validate"
)

// PushNotificationAuthentication describes the credentials a push delivery
// target expects.
type PushNotificationAuthentication struct {
	Schemes     []string `json:"schemes,omitempty"`
	Credentials string   `json:"credentials,omitempty"`
}

// PushNotificationConfig is the wire payload of
// tasks/pushNotificationConfig/{set,get} (SPEC_FULL.md §4.9), shaped after
// TheApeMachine-a2a-go's types.PushNotificationConfig.
type PushNotificationConfig struct {
	URL            string                           `json:"url"`
	Token          string                           `json:"token,omitempty"`
	Authentication *PushNotificationAuthentication `json:"authentication,omitempty"`
}

// SetTaskPushNotificationConfigParams is the tasks/pushNotificationConfig/set
// request shape.
type SetTaskPushNotificationConfigParams struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// GetTaskPushNotificationConfigParams is the
// tasks/pushNotificationConfig/get request shape.
type GetTaskPushNotificationConfigParams struct {
	TaskID string `json:"taskId"`
}

// TaskPushNotificationConfig pairs a task id with its configuration, the
// shape both set and get echo back.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// setPushNotificationConfig validates the payload and the referenced task's
// existence the way TheApeMachine-a2a-go's SetPushNotification does, then
// answers PushNotificationNotSupported — the validation exists so a future
// delivery implementation only needs to stop returning that error.
func (s *Server) setPushNotificationConfig(ctx context.Context, raw json.RawMessage) (*TaskPushNotificationConfig, error) {
	var params SetTaskPushNotificationConfigParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.Wrap(errors.KindInvalidParams, "decoding pushNotificationConfig/set params", err)
	}
	if params.TaskID == "" {
		return nil, errors.New(errors.KindInvalidParams, "taskId is required")
	}
	cfgRaw, err := json.Marshal(params.PushNotificationConfig)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidParams, "re-encoding pushNotificationConfig", err)
	}
	if err := validate.PushNotificationConfig(cfgRaw); err != nil {
		return nil, err
	}
	if _, err := s.orch.GetTask(ctx, params.TaskID, nil); err != nil {
		return nil, err
	}
	return nil, errors.New(errors.KindPushNotificationNotSupported, "push notification delivery is not supported")
}

// getPushNotificationConfig mirrors setPushNotificationConfig's shape for
// the get direction.
func (s *Server) getPushNotificationConfig(ctx context.Context, raw json.RawMessage) (*TaskPushNotificationConfig, error) {
	var params GetTaskPushNotificationConfigParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.Wrap(errors.KindInvalidParams, "decoding pushNotificationConfig/get params", err)
	}
	if params.TaskID == "" {
		return nil, errors.New(errors.KindInvalidParams, "taskId is required")
	}
	if _, err := s.orch.GetTask(ctx, params.TaskID, nil); err != nil {
		return nil, err
	}
	return nil, errors.New(errors.KindPushNotificationNotSupported, "push notification delivery is not supported")
}
