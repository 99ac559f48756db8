package clients

import (
	"context"
	"log/slog"
)

// EntityExtractor extracts named entities from text.
type EntityExtractor interface {
	// Extract returns entities grouped by type. entityTypes optionally
	// restricts extraction to the given types.
	Extract(ctx context.Context, text string, entityTypes []string) EntitiesResult
}

// ServiceNER calls the model service's NER endpoint.
type ServiceNER struct {
	client *ModelServiceClient
	status *StatusBoard
}

// NewServiceNER creates the NER adapter.
func NewServiceNER(client *ModelServiceClient, status *StatusBoard) *ServiceNER {
	return &ServiceNER{client: client, status: status}
}

func (n *ServiceNER) Extract(ctx context.Context, text string, entityTypes []string) EntitiesResult {
	request := struct {
		Text        string   `json:"text"`
		EntityTypes []string `json:"entity_types,omitempty"`
	}{
		Text:        text,
		EntityTypes: entityTypes,
	}

	var payload struct {
		Entities map[string][]string `json:"entities"`
	}
	if reason, ok := n.client.postJSON(ctx, "/api/ner", request, &payload); !ok {
		slog.Default().Error("entity extraction failed", "reason", reason)
		n.status.MarkError("ner", reason)
		return unavailableEntities(reason)
	}

	n.status.MarkOK("ner")
	if payload.Entities == nil {
		payload.Entities = map[string][]string{}
	}
	return EntitiesResult{OK: true, Entities: payload.Entities}
}
