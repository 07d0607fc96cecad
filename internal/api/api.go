// Package api holds the response envelope shared by the REST server and its
// clients.
package api

import "time"

type MessageType string

const (
	TypeSuccess MessageType = "SUCCESS"
	TypeError   MessageType = "ERROR"
	TypeInfo    MessageType = "INFO"
)

const (
	TaskCreated    = "Task created successfully"
	TaskUpdated    = "Task updated successfully"
	TaskDeleted    = "Task deleted successfully"
	TaskRetrieved  = "Task retrieved successfully"
	TasksRetrieved = "Tasks retrieved successfully"
	TasksReordered = "Tasks reordered successfully"

	InvalidTaskData    = "Invalid task data"
	TaskNotFound       = "Task not found with id"
	UnauthorizedAccess = "You are not authorized to access this resource"
	UnexpectedError    = "Unexpected error occurred"
	DatabaseError      = "Database operation failed"
)

// UserHeader partitions tasks per user. It is not authenticated.
const UserHeader = "X-User-ID"

type Envelope[T any] struct {
	Data    T           `json:"data"`
	Message string      `json:"message"`
	Type    MessageType `json:"type"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Type      MessageType       `json:"type"`
}

func Success[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Data: data, Message: message, Type: TypeSuccess}
}

type ReorderRequest struct {
	TaskIDs []string `json:"taskIds"`
	Status  string   `json:"status"`
}

type StatusRequest struct {
	Status string `json:"status"`
}
