package model

import "time"

// Audit entity and action names used by the lifecycle engine.  They
// are stored as plain strings so the audit trail stays readable when
// inspected directly in the database.
const (
	AuditEntityListing     = "waste_listing"
	AuditEntityReservation = "reservation"
	AuditEntityWasteType   = "waste_type"

	AuditActionCreated   = "created"
	AuditActionUpdated   = "updated"
	AuditActionReserved  = "reserved"
	AuditActionCollected = "collected"
	AuditActionCancelled = "cancelled"
	AuditActionDeleted   = "deleted"
)

// AuditLogEntry is one append-only record of a lifecycle transition.
// Rows are written in the same transaction as the state change they
// describe and are never updated or deleted afterwards.
//
// Fields:
//  ID        – primary key identifier.
//  Entity    – the kind of entity that changed (audit constants above).
//  Action    – what happened to it.
//  Before    – JSON snapshot prior to the change; nil for creations.
//  After     – JSON snapshot after the change; nil for deletions.
//  Message   – human-readable summary shown in the admin panel.
//  CreatedAt – when the transition happened.
type AuditLogEntry struct {
	ID        uint64    // audit_log.id
	Entity    string    // audit_log.entity
	Action    string    // audit_log.action
	Before    *string   // audit_log.before_json (nullable)
	After     *string   // audit_log.after_json (nullable)
	Message   string    // audit_log.message
	CreatedAt time.Time // audit_log.created_at
}
