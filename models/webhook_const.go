package models

type WebhookEventType string

const (
	WebhookEventTaskCreated       WebhookEventType = "task_created"
	WebhookEventTaskResolved      WebhookEventType = "task_resolved"
	WebhookEventDeliveryProgress  WebhookEventType = "delivery_progress"
	WebhookEventDeliveryCompleted WebhookEventType = "delivery_completed"
)

type WebhookStatus string

const (
	WebhookStatusStarted    WebhookStatus = "started"
	WebhookStatusDelivering WebhookStatus = "delivering"
	WebhookStatusCompleted  WebhookStatus = "completed"
)
