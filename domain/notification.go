package domain

// Notification asks the notifier to alert Recipients about Message outside the live channel.
type Notification struct {
	Message    Message  `json:"message"`
	Recipients []string `json:"recipients"`
}
