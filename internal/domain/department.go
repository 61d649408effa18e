package domain

// Category classifies what kind of problem was reported.
type Category string

const (
	CategoryPothole     Category = "pothole"
	CategoryStreetlight Category = "streetlight"
	CategoryGarbage     Category = "garbage"
	CategoryTraffic     Category = "traffic"
	CategoryWater       Category = "water"
	CategorySewage      Category = "sewage"
	CategoryOther       Category = "other"

	// Categories offered by the public client.
	CategoryRoad        Category = "road"
	CategoryWaste       Category = "waste"
	CategoryElectricity Category = "electricity"
	CategoryParks       Category = "parks"
	CategorySafety      Category = "safety"
)

var knownCategories = map[Category]struct{}{
	CategoryPothole:     {},
	CategoryStreetlight: {},
	CategoryGarbage:     {},
	CategoryTraffic:     {},
	CategoryWater:       {},
	CategorySewage:      {},
	CategoryOther:       {},
	CategoryRoad:        {},
	CategoryWaste:       {},
	CategoryElectricity: {},
	CategoryParks:       {},
	CategorySafety:      {},
}

// Valid reports whether c is an accepted category.
func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Department is the city unit an issue is routed to.
type Department string

const (
	DepartmentRoads       Department = "roads"
	DepartmentElectricity Department = "electricity"
	DepartmentSanitation  Department = "sanitation"
	DepartmentWater       Department = "water"
	DepartmentTraffic     Department = "traffic"
	DepartmentOther       Department = "other"
)

var categoryDepartments = map[Category]Department{
	CategoryPothole:     DepartmentRoads,
	CategoryStreetlight: DepartmentElectricity,
	CategoryGarbage:     DepartmentSanitation,
	CategoryWater:       DepartmentWater,
	CategorySewage:      DepartmentSanitation,
	CategoryTraffic:     DepartmentTraffic,
}

// DepartmentFor looks up the department owning a category.
func DepartmentFor(category Category) (Department, bool) {
	dept, ok := categoryDepartments[category]
	return dept, ok
}

// ResolveDepartment returns the mapped department for category, or current
// when the category has no mapping.
func ResolveDepartment(category Category, current Department) Department {
	if dept, ok := DepartmentFor(category); ok {
		return dept
	}
	if current == "" {
		return DepartmentOther
	}
	return current
}
