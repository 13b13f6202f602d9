package blog

import "time"

// Account is a stored user account. Username is unique and immutable after
// creation; the password digest and salt never leave the package.
type Account struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	PasswordSalt string `json:"-"`
	Role         Role   `json:"role"`
}

// Entry is a blog entry. OwnerID references Account.ID at the application
// level only; there is no foreign key constraint behind it.
type Entry struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created"`
	UpdatedAt   time.Time `json:"updated"`
}
