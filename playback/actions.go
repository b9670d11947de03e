package playback

import "fmt"

// Action is a listener command as sent by the browser.
type Action struct {
	Action      string  `json:"action"`
	Index       *int    `json:"index,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// Apply dispatches a to c. "state" changes nothing and exists so a client
// can ask for a fresh snapshot.
func Apply(c *Controller, a Action) error {
	switch a.Action {
	case "next":
		return c.Next()
	case "previous":
		return c.Previous()
	case "select":
		if a.Index == nil {
			return fmt.Errorf("select requires an index")
		}
		return c.Select(*a.Index)
	case "toggle":
		return c.TogglePlay()
	case "ended":
		return c.Ended()
	case "time":
		c.UpdateTime(a.CurrentTime, a.Duration)
		return nil
	case "state":
		return nil
	default:
		return fmt.Errorf("unknown action %q", a.Action)
	}
}
