package models

import "time"

// Profile is the public view of an article's author.
type Profile struct {
	ID       int64  `json:"-"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

type Article struct {
	ID             int64     `json:"-"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int64     `json:"favoritesCount"`
	AuthorID       int64     `json:"-"`
	Author         Profile   `json:"author"`
}

type Tag struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
}
