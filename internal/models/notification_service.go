package models

type NotificationService interface {
	SendNotification(event *Event)
}
