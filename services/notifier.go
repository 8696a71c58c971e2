package services

import (
	"context"

	"menu-service/models"
)

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

type Change struct {
	Kind ChangeKind
	Node models.MenuNode
}

// Notifier is told about committed mutations. Implementations must not block the caller
// for long and cannot fail the mutation.
type Notifier interface {
	MenuChanged(ctx context.Context, c Change)
}

type NopNotifier struct{}

func (NopNotifier) MenuChanged(context.Context, Change) {}
