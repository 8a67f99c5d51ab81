package model

import "time"

// WasteType is a catalog entry describing a category of recyclable
// waste.  The catalog is reference data maintained by admins.  A
// waste type that is referenced by any listing cannot be deleted;
// the lifecycle engine enforces RESTRICT semantics instead of a
// cascade.
//
// Fields:
//  ID                  – primary key identifier.
//  Name                – unique human-readable name ("Glass", "PET").
//  UnitLabel           – official unit the amount is measured in ("kg").
//  RecycleScorePerUnit – reward points earned per unit collected.
//  CreatedAt           – creation timestamp.
type WasteType struct {
	ID                  uint64    // waste_types.id
	Name                string    // waste_types.name
	UnitLabel           string    // waste_types.unit_label
	RecycleScorePerUnit float64   // waste_types.recycle_score_per_unit
	CreatedAt           time.Time // waste_types.created_at
}
