package models

// Tag labels recipes. Color is optional but unique when set.
type Tag struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Name  string  `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Color *string `gorm:"size:7;uniqueIndex" json:"color"`
	Slug  string  `gorm:"size:200;not null;uniqueIndex" json:"slug"`
}

// Ingredient is a catalog entry. The (name, unit) pair is unique so the CSV
// import can get-or-create on it.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:200;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:200;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}
