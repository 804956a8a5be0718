package queue

import "context"

// Job consumes one message type off the queue. The rescan job is the
// only registered job today; the registry keys on Type.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job handles.
	Type() string

	// Handle processes one payload. A returned error puts the message
	// on the retry schedule.
	Handle(ctx context.Context, payload interface{}) error
}
