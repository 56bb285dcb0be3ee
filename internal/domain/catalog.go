package domain

// Course is the catalog view of a purchasable course.
type Course struct {
	ID           string
	Title        string
	Price        int64
	DurationDays int // access window after enrollment; 0 means unlimited
}

// Combo is the catalog view of a purchasable bundle of courses.
type Combo struct {
	ID           string
	Title        string
	Price        int64
	DurationDays int
	CourseIDs    []string
}

// CatalogItem is the price and duration of whatever a payment is buying.
type CatalogItem struct {
	Type         PurchaseType
	ID           string
	Title        string
	Price        int64
	DurationDays int
}

// Item converts the course to a generic catalog item.
func (c *Course) Item() CatalogItem {
	return CatalogItem{Type: PurchaseTypeCourse, ID: c.ID, Title: c.Title, Price: c.Price, DurationDays: c.DurationDays}
}

// Item converts the combo to a generic catalog item.
func (c *Combo) Item() CatalogItem {
	return CatalogItem{Type: PurchaseTypeCombo, ID: c.ID, Title: c.Title, Price: c.Price, DurationDays: c.DurationDays}
}
