package models

// MeasurementUnit names the unit an ingredient is measured in.
type MeasurementUnit struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Named
}

type Ingredient struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Named
	// Nulled when the unit is deleted.
	MeasurementUnitID *uint           `gorm:"index" json:"measurement_unit_id"`
	MeasurementUnit   *MeasurementUnit `gorm:"foreignKey:MeasurementUnitID;constraint:OnDelete:SET NULL" json:"measurement_unit,omitempty"`
}

// UnitName returns the measurement unit name or an empty string when the
// unit has been removed.
func (i Ingredient) UnitName() string {
	if i.MeasurementUnit == nil {
		return ""
	}
	return i.MeasurementUnit.Name
}
