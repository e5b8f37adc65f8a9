package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSkip   Action = "skip"
	ActionView   Action = "view"
	ActionFinish Action = "finish"
	ActionPing   Action = "ping"
)

// Request is one client message. Position is 1-indexed; Selected is only
// read by ActionAnswer.
type Request struct {
	Action   Action `json:"action"`
	Position int    `json:"n,omitempty"`
	Selected []int  `json:"selected,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventQuestion Event = "question"
	EventSaved    Event = "saved"
	EventNext     Event = "next"
	EventFinished Event = "finished"
	EventPong     Event = "pong"
)

type QuestionResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

type SavedResponse struct {
	Event     Event `json:"event"`
	Position  int   `json:"n"`
	Selected  []int `json:"selected"`
	Confirmed bool  `json:"confirmed"`
}

type NextResponse struct {
	Event Event `json:"event"`
	Next  int   `json:"next"`
}

type FinishedResponse struct {
	Event   Event `json:"event"`
	Score   int   `json:"score"`
	Percent int   `json:"percent"`
	Total   int   `json:"total"`
}

type PongResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}
