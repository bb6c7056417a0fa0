package viewer

// EventType identifies a scene event.
type EventType int

const (
	EventProgress        EventType = iota // Load progress in [0, 1]
	EventLoad                             // A model was mounted
	EventSceneGraphReady                  // The scene graph facade of a loaded model is available
	EventError                            // A load failed
)

func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventLoad:
		return "load"
	case EventSceneGraphReady:
		return "scene-graph-ready"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to Options.OnEvent.
type Event struct {
	Type     EventType
	URL      string
	Progress float64
	Err      error
}
