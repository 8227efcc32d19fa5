package database

type User struct {
	ID          int64
	Login       string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
}

type Term struct {
	ID          int64
	Taxonomy    string
	Slug        string
	Name        string
	Description string
	Parent      int64
	Count       int
}

type Post struct {
	ID            int64
	AuthorID      int64
	Date          string
	DateGMT       string
	Content       string
	Title         string
	Excerpt       string
	Status        string
	CommentStatus string
	PingStatus    string
	Password      string
	Name          string
	Parent        int64
	GUID          string
	MenuOrder     int
	Type          string
	MimeType      string
	IsSticky      bool
}

type Meta struct {
	Key   string
	Value string
}

type Comment struct {
	ID          int64
	PostID      int64
	Author      string
	AuthorEmail string
	AuthorURL   string
	AuthorIP    string
	Date        string
	DateGMT     string
	Content     string
	Approved    string
	Type        string
	Parent      int64
	UserID      int64
}

type Option struct {
	Name  string
	Value string
}

// StateEntry is one journalled run-state row; entries come back in insertion order.
type StateEntry struct {
	Kind     string
	SourceID int64
	DestID   int64
}

type Stats struct {
	Posts    int `json:"posts"`
	Terms    int `json:"terms"`
	Comments int `json:"comments"`
	Users    int `json:"users"`
	Options  int `json:"options"`
}
