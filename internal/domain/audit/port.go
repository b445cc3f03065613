package audit

import "context"

// Recorder accepts events fire-and-forget. It never blocks the caller on
// storage and never reports write failures back.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Writer persists or forwards one event.
type Writer interface {
	Write(ctx context.Context, e Event) error
}
