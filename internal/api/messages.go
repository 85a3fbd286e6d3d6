package api

import "time"

type Task struct {
	ID        string  `json:"id"`
	MainTask  string  `json:"mainTask"`
	Steps     []*Step `json:"steps"`
	CreatedAt int64   `json:"createdAt"`
}

type Step struct {
	ID               string     `json:"id"`
	Text             string     `json:"text"`
	EstimatedMinutes *float64   `json:"estimatedMinutes,omitempty"`
	Completed        bool       `json:"completed"`
	SubSteps         []*SubStep `json:"subSteps"`
}

type SubStep struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	EstimatedMinutes *float64 `json:"estimatedMinutes,omitempty"`
	Completed        bool     `json:"completed"`
}

type Progress struct {
	CompletedCount int     `json:"completedCount"`
	TotalCount     int     `json:"totalCount"`
	Percent        float64 `json:"percent"`
}

type Profile struct {
	GranularityPreference string    `json:"granularityPreference"`
	TriggersToAvoid       string    `json:"triggersToAvoid"`
	SupportStyle          string    `json:"supportStyle"`
	UpdatedAt             time.Time `json:"updatedAt,omitzero"`
}

type RequestStatus struct {
	Target    string    `json:"target"`
	State     string    `json:"state"`
	Outcome   string    `json:"outcome,omitempty"`
	Error     string    `json:"error,omitempty"`
	SettledAt time.Time `json:"settledAt,omitzero"`
}

type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	ResourceID string            `json:"resourceId"`
	Payload    string            `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// TaskResult is returned by every call that reads or changes the current
// task. Unsaved is set when the change was applied but could not be
// persisted yet.
type TaskResult struct {
	Task     *Task    `json:"task,omitempty"`
	Progress Progress `json:"progress"`
	NextStep *Step    `json:"nextStep,omitempty"`
	Unsaved  bool     `json:"unsaved,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

type CreateTaskRequest struct {
	Text    string   `json:"text"`
	Profile *Profile `json:"profile,omitempty"`
}

type ExpandStepRequest struct {
	StepID  string   `json:"stepId"`
	Profile *Profile `json:"profile,omitempty"`
}

type ToggleStepRequest struct {
	StepID string `json:"stepId"`
}

type ToggleSubStepRequest struct {
	StepID    string `json:"stepId"`
	SubStepID string `json:"subStepId"`
}

type ClearCompletedRequest struct{}

type GetCurrentTaskRequest struct{}

type ArchiveTaskRequest struct{}

type ArchiveTaskResponse struct {
	Task *Task `json:"task"`
}

type ListHistoryRequest struct {
	NewestFirst bool `json:"newestFirst"`
}

type ListHistoryResponse struct {
	Tasks []*Task `json:"tasks"`
}

type DeleteHistoryTaskRequest struct {
	TaskID string `json:"taskId"`
}

type DeleteHistoryTaskResponse struct{}

type GetRequestStateRequest struct {
	// StepID selects a step breakdown; empty selects task creation.
	StepID string `json:"stepId,omitempty"`
}

type GetRequestStateResponse struct {
	Status *RequestStatus `json:"status"`
}

type SyncTaskRequest struct{}

type SyncTaskResponse struct {
	Unsaved bool `json:"unsaved"`
}

type GetProfileRequest struct{}

type GetProfileResponse struct {
	Profile *Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	Profile *Profile `json:"profile"`
}

type UpdateProfileResponse struct {
	Profile *Profile `json:"profile"`
}

type SubscribeEventsRequest struct {
	// EventTypes filters the stream; empty means all events.
	EventTypes []string `json:"eventTypes,omitempty"`
}

type GetVapidPublicKeyRequest struct{}

type GetVapidPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type RegisterPushSubscriptionRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dhKey"`
	AuthKey   string `json:"authKey"`
}

type RegisterPushSubscriptionResponse struct{}

type UnregisterPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}

type UnregisterPushSubscriptionResponse struct{}

type SendTestNotificationRequest struct{}

type SendTestNotificationResponse struct{}
