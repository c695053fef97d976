package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/pkg/models"
)

// metadataSchemas describes the metadata each known notification type carries.
// Types without an entry accept any JSON object.
var metadataSchemas = map[string]string{
	models.NotificationSessionReminder: `{
		"type": "object",
		"required": ["session_id"],
		"properties": {
			"session_id": {"type": "string", "minLength": 1},
			"data_hora": {"type": "string"}
		}
	}`,
	models.NotificationPaymentDue: `{
		"type": "object",
		"required": ["payment_id"],
		"properties": {
			"payment_id": {"type": "string", "minLength": 1},
			"valor": {"type": "number", "minimum": 0}
		}
	}`,
	models.NotificationFeedbackRequest: `{
		"type": "object",
		"required": ["session_id"],
		"properties": {"session_id": {"type": "string", "minLength": 1}}
	}`,
	models.NotificationAppointmentConfirmation: `{
		"type": "object",
		"required": ["session_id"],
		"properties": {
			"session_id": {"type": "string", "minLength": 1},
			"data_hora": {"type": "string"}
		}
	}`,
	models.NotificationAppointmentCancellation: `{
		"type": "object",
		"required": ["session_id"],
		"properties": {"session_id": {"type": "string", "minLength": 1}}
	}`,
}

// MetadataValidator checks notification metadata against the compiled schema
// for its type.
type MetadataValidator struct {
	schemas map[string]*jsonschema.Schema
}

func NewMetadataValidator() (*MetadataValidator, error) {
	v := &MetadataValidator{schemas: make(map[string]*jsonschema.Schema, len(metadataSchemas))}
	for typ, src := range metadataSchemas {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(src), rs); err != nil {
			return nil, fmt.Errorf("compile metadata schema %s: %w", typ, err)
		}
		v.schemas[typ] = rs
	}
	return v, nil
}

// Validate returns a ValidationError when metadata is not a JSON object or does
// not match the schema registered for typ. Empty metadata is always accepted.
func (v *MetadataValidator) Validate(ctx context.Context, typ string, metadata json.RawMessage) error {
	if len(metadata) == 0 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(metadata, &obj); err != nil {
		return apperr.Validation("metadata", "must be a JSON object")
	}

	schema, ok := v.schemas[typ]
	if !ok {
		return nil
	}
	verrs, err := schema.ValidateBytes(ctx, metadata)
	if err != nil {
		return fmt.Errorf("validate metadata: %w", err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, strings.TrimSpace(e.PropertyPath+" "+e.Message))
		}
		return apperr.Validation("metadata", strings.Join(msgs, "; "))
	}
	return nil
}
