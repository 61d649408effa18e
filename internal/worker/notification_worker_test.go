package worker

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/civic-reporter/internal/config"
	"github.com/spec-kit/civic-reporter/internal/events"
)

func TestStartNotificationWorkerSubscribesToIssueEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()

	if StartNotificationWorker(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: "http://hooks.local"}) == nil {
		t.Fatalf("expected notification service")
	}

	event := events.NewEvent(events.EventIssueStatusChanged, "issue-1", events.Actor{UserID: "u1"}, events.IssueStatusChangedPayload{})
	if err := dispatcher.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if logs.FilterMessage("IssueStatusChanged").Len() != 1 {
		t.Fatalf("expected status change to be logged, got %v", logs.All())
	}
	if logs.FilterMessage("sendWebhookNotificationStub").Len() != 1 {
		t.Fatalf("expected webhook stub delivery")
	}
	if logs.FilterMessage("sendEmailNotificationStub").Len() != 0 {
		t.Fatalf("email stub must stay silent without a sender address")
	}
}

func TestStartNotificationWorkerNilDispatcher(t *testing.T) {
	if StartNotificationWorker(nil, zap.NewNop(), config.NotificationConfig{}) != nil {
		t.Fatalf("expected nil service without dispatcher")
	}
}
