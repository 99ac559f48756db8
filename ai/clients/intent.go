package clients

import (
	"context"
	"log/slog"
)

// IntentClassifier classifies the conversational intent of a message.
type IntentClassifier interface {
	// Classify returns the predicted intent with confidence and ranked
	// alternatives. recentIntents gives the classifier short-term context.
	Classify(ctx context.Context, text, userID string, recentIntents []string) IntentResult
}

// ServiceIntentClassifier calls the model service's intent endpoint.
type ServiceIntentClassifier struct {
	client *ModelServiceClient
	status *StatusBoard
}

// NewServiceIntentClassifier creates the intent adapter.
func NewServiceIntentClassifier(client *ModelServiceClient, status *StatusBoard) *ServiceIntentClassifier {
	return &ServiceIntentClassifier{client: client, status: status}
}

func (c *ServiceIntentClassifier) Classify(ctx context.Context, text, userID string, recentIntents []string) IntentResult {
	request := struct {
		Text                string   `json:"text"`
		UserID              string   `json:"user_id,omitempty"`
		ConversationContext []string `json:"conversation_context,omitempty"`
	}{
		Text:                text,
		UserID:              userID,
		ConversationContext: recentIntents,
	}

	var payload struct {
		PredictedIntent  string         `json:"predicted_intent"`
		Confidence       float64        `json:"confidence"`
		DetectedLanguage string         `json:"detected_language"`
		Alternatives     [][2]any       `json:"alternatives"`
		InferenceTimeMs  float64        `json:"inference_time_ms"`
		Metadata         map[string]any `json:"metadata"`
	}
	if reason, ok := c.client.postJSON(ctx, "/api/intent", request, &payload); !ok {
		slog.Default().Error("intent classification failed", "reason", reason)
		c.status.MarkError("intent", reason)
		return unavailableIntent(reason)
	}

	alternatives := make([]IntentAlternative, 0, len(payload.Alternatives))
	for _, pair := range payload.Alternatives {
		label, _ := pair[0].(string)
		confidence, _ := pair[1].(float64)
		if label == "" {
			continue
		}
		alternatives = append(alternatives, IntentAlternative{Intent: label, Confidence: confidence})
	}

	c.status.MarkOK("intent")
	return IntentResult{
		OK:           true,
		Intent:       payload.PredictedIntent,
		Confidence:   payload.Confidence,
		Alternatives: alternatives,
	}
}
