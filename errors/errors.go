package errors

import "fmt"

var (
	ErrValidation        = fmt.Errorf("invalid message")
	ErrCategoryRequired  = fmt.Errorf("%w: communication category must be chosen by internal senders", ErrValidation)
	ErrContactIDRequired = fmt.Errorf("%w: contact id is required", ErrValidation)
	ErrPersistence       = fmt.Errorf("persistence failure")
	ErrNotify            = fmt.Errorf("notifier call failed")
	ErrNotFound          = fmt.Errorf("not found")
	ErrAlreadyJoined     = fmt.Errorf("connection already joined another conversation")
	ErrNotJoined         = fmt.Errorf("connection has not joined a conversation")
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrQueueFull         = fmt.Errorf("queue is full")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)
