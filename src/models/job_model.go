package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobKind tags the payload member a job carries.
type JobKind string

const (
	JobConnectionRequest JobKind = "connection_request"
	JobIdentityCreated   JobKind = "identity_created"
	JobIdentityUpdated   JobKind = "identity_updated"
	JobIdentityDeleted   JobKind = "identity_deleted"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobPayload holds exactly one member, matching the job kind.
type JobPayload struct {
	ConnectionRequest *ConnectionRequestJob `json:"connection_request,omitempty" bson:"connection_request,omitempty"`
	Identity          *IdentityEventJob     `json:"identity,omitempty" bson:"identity,omitempty"`
}

// SerialKey groups jobs that must run one at a time, in enqueue order.
// Events about the same user are applied in the order they arrived.
func (p JobPayload) SerialKey() string {
	if p.Identity != nil && p.Identity.Id != "" {
		return "user:" + p.Identity.Id
	}
	return ""
}

type ConnectionRequestJob struct {
	ConnectionId primitive.ObjectID `json:"connection_id" bson:"connection_id"`
}

// IdentityEventJob is the identity provider's user payload.
type IdentityEventJob struct {
	Id        string `json:"id" bson:"id"`
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Email     string `json:"email" bson:"email"`
	ImageUrl  string `json:"image_url" bson:"image_url"`
}

type Job struct {
	Id         primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Kind       JobKind              `json:"kind" bson:"kind"`
	Payload    JobPayload           `json:"payload" bson:"payload"`
	SerialKey  string               `json:"serial_key,omitempty" bson:"serial_key,omitempty"`
	Status     JobStatus            `json:"status" bson:"status"`
	RunAt      time.Time            `json:"run_at" bson:"run_at"`
	LeaseUntil time.Time            `json:"lease_until" bson:"lease_until"`
	Attempts   int                  `json:"attempts" bson:"attempts"`
	Steps      map[string]time.Time `json:"steps" bson:"steps"`
	Sleeps     map[string]time.Time `json:"sleeps" bson:"sleeps"`
	LastError  string               `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt  time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time            `json:"updatedAt" bson:"updated_at"`
}

// Precedes reports whether j was enqueued before other.
func (j *Job) Precedes(other *Job) bool {
	if !j.CreatedAt.Equal(other.CreatedAt) {
		return j.CreatedAt.Before(other.CreatedAt)
	}
	return j.Id.Hex() < other.Id.Hex()
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	c := *j
	if j.Payload.ConnectionRequest != nil {
		cr := *j.Payload.ConnectionRequest
		c.Payload.ConnectionRequest = &cr
	}
	if j.Payload.Identity != nil {
		id := *j.Payload.Identity
		c.Payload.Identity = &id
	}
	c.Steps = make(map[string]time.Time, len(j.Steps))
	for k, v := range j.Steps {
		c.Steps[k] = v
	}
	c.Sleeps = make(map[string]time.Time, len(j.Sleeps))
	for k, v := range j.Sleeps {
		c.Sleeps[k] = v
	}
	return &c
}
