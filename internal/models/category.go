package models

// MainCategory is a top-level category seeded by migration.
type MainCategory struct {
	ID   int64
	Name string
}

// SubCategory keys on (MainCategoryID, ID); sub ids are 1-indexed within
// their main category.
type SubCategory struct {
	ID             int64
	MainCategoryID int64
	Name           string
}
