package event

type Type string

const (
	TypeDirectoryUpdated  Type = "directory.updated"
	TypeSubjectSubscribed Type = "subject.subscribed"
	TypeSubjectRemoved    Type = "subject.removed"
	TypeFileUploaded      Type = "file.uploaded"
	TypeStatsInvalidated  Type = "stats.invalidated"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"` // Who triggered the event
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
