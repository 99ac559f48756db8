package clients

import (
	"context"
	"log/slog"
)

// SentimentAnalyzer labels the sentiment of a message. It is only consulted
// by the context builder for segment-level metadata; resolution does not
// depend on it.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) SentimentResult
}

// ServiceSentiment calls the model service's sentiment endpoint.
type ServiceSentiment struct {
	client *ModelServiceClient
	status *StatusBoard
}

// NewServiceSentiment creates the sentiment adapter.
func NewServiceSentiment(client *ModelServiceClient, status *StatusBoard) *ServiceSentiment {
	return &ServiceSentiment{client: client, status: status}
}

func (s *ServiceSentiment) Analyze(ctx context.Context, text string) SentimentResult {
	request := struct {
		Text string `json:"text"`
	}{Text: text}

	var payload struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if reason, ok := s.client.postJSON(ctx, "/api/sentiment", request, &payload); !ok {
		slog.Default().Error("sentiment analysis failed", "reason", reason)
		s.status.MarkError("sentiment", reason)
		return unavailableSentiment(reason)
	}

	s.status.MarkOK("sentiment")
	return SentimentResult{OK: true, Label: payload.Label, Confidence: payload.Confidence}
}
