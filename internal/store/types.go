package store

import (
	"time"
)

// Hub identifies the dashboard context a row belongs to.
const (
	HubPersonal   = "personal"
	HubGroup      = "group"
	HubEnterprise = "enterprise"
)

// Task statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Assignment statuses.
const (
	AssignmentPending    = "pending"
	AssignmentProcessing = "processing"
	AssignmentCompleted  = "completed"
	AssignmentFailed     = "failed"
)

// Evolution statuses.
const (
	EvolutionProposed = "proposed"
	EvolutionApplied  = "applied"
	EvolutionRejected = "rejected"
)

// Webhook delivery statuses.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Widget version origins.
const (
	VersionOriginManual    = "manual"
	VersionOriginSuggested = "suggested"
	VersionOriginEvolution = "evolution"
	VersionOriginRollback  = "rollback"
)

// Task is a unit of work on a dashboard, optionally assigned to agents.
type Task struct {
	ID               int64      `json:"id"`
	TaskID           string     `json:"task_id"`
	Hub              string     `json:"hub"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Priority         int        `json:"priority"`
	Output           string     `json:"output,omitempty"`
	ErrorText        string     `json:"error_text,omitempty"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// Assignment is a queue row linking a task to an agent chosen by the
// orchestrator.
type Assignment struct {
	ID        int64      `json:"id"`
	TaskID    string     `json:"task_id"`
	AgentID   string     `json:"agent_id"`
	Status    string     `json:"status"`
	Reasoning string     `json:"reasoning,omitempty"`
	Output    string     `json:"output,omitempty"`
	ErrorText string     `json:"error_text,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

// Agent is a synthetic persona the orchestrator can assign tasks to.
type Agent struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Hub       string    `json:"hub"`
	Name      string    `json:"name"`
	Persona   string    `json:"persona,omitempty"`
	Skills    string    `json:"skills,omitempty"` // comma-separated
	Status    string    `json:"status"`           // active, idle, retired
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Goal is a long-running objective tracked on a dashboard.
type Goal struct {
	ID          int64      `json:"id"`
	GoalID      string     `json:"goal_id"`
	Hub         string     `json:"hub"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"` // active, completed, archived
	Progress    int        `json:"progress"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Habit is a recurring practice with a cron-style schedule.
type Habit struct {
	ID        int64      `json:"id"`
	HabitID   string     `json:"habit_id"`
	Hub       string     `json:"hub"`
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"` // 5-field cron expression
	Streak    int        `json:"streak"`
	LastDone  *time.Time `json:"last_done,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HabitCompletion records one completion of a habit.
type HabitCompletion struct {
	ID          int64     `json:"id"`
	HabitID     string    `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Widget is a dashboard component whose definition is versioned.
type Widget struct {
	ID            int64      `json:"id"`
	WidgetID      string     `json:"widget_id"`
	Hub           string     `json:"hub"`
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	Config        string     `json:"config"` // JSON blob
	Source        string     `json:"source,omitempty"`
	ActiveVersion int        `json:"active_version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// WidgetVersion is a historical snapshot of a widget's definition.
type WidgetVersion struct {
	ID        int64     `json:"id"`
	WidgetID  string    `json:"widget_id"`
	Version   int       `json:"version"`
	Config    string    `json:"config"`
	Source    string    `json:"source,omitempty"`
	Origin    string    `json:"origin"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Evolution is one LLM-proposed revision of a widget's source.
type Evolution struct {
	ID          int64      `json:"id"`
	EvolutionID string     `json:"evolution_id"`
	WidgetID    string     `json:"widget_id"`
	ParentID    string     `json:"parent_id,omitempty"`
	Generation  int        `json:"generation"`
	Directive   string     `json:"directive"`
	Source      string     `json:"source"`
	Summary     string     `json:"summary,omitempty"`
	Model       string     `json:"model,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// Webhook is a registered outbound event endpoint.
type Webhook struct {
	ID        int64     `json:"id"`
	WebhookID string    `json:"webhook_id"`
	Hub       string    `json:"hub"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    string    `json:"events"` // comma-separated topics, "*" for all
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookDelivery tracks one attempted delivery of an event to a webhook.
type WebhookDelivery struct {
	ID        int64      `json:"id"`
	WebhookID string     `json:"webhook_id"`
	Event     string     `json:"event"`
	Payload   string     `json:"payload"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	NextAt    *time.Time `json:"next_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Notification is an in-app notification row.
type Notification struct {
	ID        int64     `json:"id"`
	NotifID   string    `json:"notif_id"`
	Hub       string    `json:"hub"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryChunk is an embedded snippet of user data the assistant can search.
type MemoryChunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []byte    `json:"-"`
	Source    string    `json:"source"` // task, goal, habit, widget, note
	RefID     string    `json:"ref_id,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
