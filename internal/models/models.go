package models

type Category struct {
	ID          int64  `json:"id" yaml:"id" db:"id"`
	Name        string `json:"name" yaml:"name" db:"name"`
	Description string `json:"description" yaml:"description" db:"description"`
}

type Item struct {
	ID          int64  `json:"id" yaml:"id" db:"id"`
	Name        string `json:"name" yaml:"name" db:"name"`
	Category    int64  `json:"category" yaml:"category" db:"category"`
	Description string `json:"description" yaml:"description" db:"description"`
}

// ItemWithCategory is an item joined with the name of its category.
type ItemWithCategory struct {
	Item
	CategoryName string `json:"category_name" db:"category_name"`
}

// Catalog is the nested export document.
type Catalog struct {
	Categories []CatalogCategory `json:"Category" yaml:"Category"`
}

type CatalogCategory struct {
	ID          int64         `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Items       []CatalogItem `json:"Item" yaml:"Item"`
}

type CatalogItem struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Category    int64  `json:"category" yaml:"category"`
}

type Stats struct {
	TotalCategories int `json:"total_categories" db:"total_categories"`
	TotalItems      int `json:"total_items" db:"total_items"`
}

// User is the profile of the signed-in account, held only in the session.
type User struct {
	ProviderID string `json:"gplus_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
}
