package models

// Teacher is a directory entry used to resolve roster labels.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Username string `db:"username" json:"username"`
}
