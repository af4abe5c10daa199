// Package services contains the demo services whose identities make container
// scope and lifetime behavior visible.
//
// Every service holds an identifier generated at construction and logs both its
// construction and its disposal. Watching the identifiers and the log output
// shows exactly which container scope produced which instance, and when that
// scope tore it down.
package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ident is the shared base for the demo services. It generates an identifier
// once at construction and logs construction and disposal.
//
// The identifier never changes after construction.
type ident struct {
	id   uuid.UUID
	name string
	log  *zap.Logger
}

func newIdent(name string, log *zap.Logger) ident {
	id := uuid.New()
	log.Info("service created",
		zap.String("service", name),
		zap.Stringer("id", id),
	)

	return ident{
		id:   id,
		name: name,
		log:  log,
	}
}

// ID returns the identifier assigned at construction.
func (s *ident) ID() uuid.UUID {
	return s.id
}

// Close logs disposal. The service holds no other resources.
// The container calls Close once when the owning scope is closed.
func (s *ident) Close(ctx context.Context) error {
	s.log.Info("service disposed",
		zap.String("service", s.name),
		zap.Stringer("id", s.id),
	)
	return nil
}

// TransientStamp is an identified service meant to be registered with a
// Transient lifetime: every resolution produces a fresh identifier.
type TransientStamp struct {
	ident
}

func NewTransientStamp(log *zap.Logger) *TransientStamp {
	return &TransientStamp{ident: newIdent("transient-stamp", log)}
}
