package account

// Account describes a user of the death clock
type Account struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Email string `json:"email" gorm:"uniqueIndex"`
}
