package models

import "time"

// WorkspaceState is the lifecycle state of an isolated workspace.
type WorkspaceState string

const (
	// WorkspaceCreated indicates the checkout exists but nothing has written to it.
	WorkspaceCreated WorkspaceState = "created"
	// WorkspaceInUse indicates a validator owns the workspace.
	WorkspaceInUse WorkspaceState = "in_use"
	// WorkspaceDestroyed indicates the checkout has been removed.
	WorkspaceDestroyed WorkspaceState = "destroyed"
)

// Valid returns true if the state is a known value.
func (s WorkspaceState) Valid() bool {
	switch s {
	case WorkspaceCreated, WorkspaceInUse, WorkspaceDestroyed:
		return true
	default:
		return false
	}
}

// Workspace is an isolated, disposable copy of the project tree.
type Workspace struct {
	// Name is the registry key, unique within the manager.
	Name string `json:"name"`
	// Root is the absolute filesystem root of the copy.
	Root string `json:"root"`
	// Branch is the isolation branch backing the copy. Empty for copy-mode workspaces.
	Branch string `json:"branch,omitempty"`
	// State is the lifecycle state.
	State WorkspaceState `json:"state"`
	// CreatedAt is when the workspace was created.
	CreatedAt time.Time `json:"created_at"`
}
