package model

// Records mirror the demo API's JSON shapes. Every record exposes Key (its
// server-assigned id) and Label (a one-line summary used by list views).

type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (p Post) Key() int      { return p.ID }
func (p Post) Label() string { return p.Title }

type Comment struct {
	ID     int    `json:"id"`
	PostID int    `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

func (c Comment) Key() int      { return c.ID }
func (c Comment) Label() string { return c.Name }

type Album struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

func (a Album) Key() int      { return a.ID }
func (a Album) Label() string { return a.Title }

type Photo struct {
	ID           int    `json:"id"`
	AlbumID      int    `json:"albumId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (p Photo) Key() int      { return p.ID }
func (p Photo) Label() string { return p.Title }

type Todo struct {
	ID        int    `json:"id"`
	UserID    int    `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func (t Todo) Key() int { return t.ID }

func (t Todo) Label() string {
	if t.Completed {
		return "[x] " + t.Title
	}
	return "[ ] " + t.Title
}

type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	BS          string `json:"bs"`
}

type User struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Address  Address `json:"address"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Company  Company `json:"company"`
}

func (u User) Key() int { return u.ID }

func (u User) Label() string {
	if u.Username == "" {
		return u.Name
	}
	return u.Name + " (@" + u.Username + ")"
}
