package widget

const InactiveSidebar = "wp_inactive_widgets"

type MessageType string

const (
	Success MessageType = "success"
	Warning MessageType = "warning"
	Error   MessageType = "error"
)

// Instance is one widget as exported, e.g. ID "text-2" with IDBase "text".
type Instance struct {
	ID       string
	IDBase   string
	Settings map[string]any
}

type Sidebar struct {
	ID      string
	Widgets []Instance
}

// Data keeps sidebars in export order.
type Data struct {
	Sidebars []Sidebar
}

type WidgetResult struct {
	Name        string      `json:"name"`
	Title       string      `json:"title"`
	MessageType MessageType `json:"message_type"`
	Message     string      `json:"message"`
}

type SidebarResult struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	MessageType MessageType    `json:"message_type"`
	Message     string         `json:"message"`
	Widgets     []WidgetResult `json:"widgets"`
}

type Report struct {
	Sidebars []SidebarResult `json:"sidebars"`
}

func (r Report) Count(t MessageType) int {
	n := 0
	for _, s := range r.Sidebars {
		for _, w := range s.Widgets {
			if w.MessageType == t {
				n++
			}
		}
	}
	return n
}
