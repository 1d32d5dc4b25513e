package models

// Term folds WordPress' terms and term_taxonomy tables into one row.
type Term struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Taxonomy    string `gorm:"size:32;not null;uniqueIndex:idx_term_taxonomy_slug"`
	Slug        string `gorm:"size:200;not null;uniqueIndex:idx_term_taxonomy_slug"`
	Name        string `gorm:"size:200;not null;default:''"`
	Description string `gorm:"type:text;not null;default:''"`
	Parent      int64  `gorm:"not null;default:0;index"`
	Count       int64  `gorm:"not null;default:0"`
}

func (Term) TableName() string {
	return "wp_terms"
}

type TermRelationship struct {
	PostID int64 `gorm:"primaryKey;autoIncrement:false"`
	TermID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (TermRelationship) TableName() string {
	return "wp_term_relationships"
}

type Post struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Type          string `gorm:"size:20;not null;default:'post';index"`
	Title         string `gorm:"type:text;not null;default:''"`
	Content       string `gorm:"type:text;not null;default:''"`
	Excerpt       string `gorm:"type:text;not null;default:''"`
	Status        string `gorm:"size:20;not null;default:'publish'"`
	Name          string `gorm:"size:200;not null;default:''"`
	Date          string `gorm:"size:19;not null;default:''"`
	DateGMT       string `gorm:"size:19;not null;default:''"`
	GUID          string `gorm:"column:guid;size:255;not null;default:'';index"`
	Parent        int64  `gorm:"not null;default:0;index"`
	MenuOrder     int    `gorm:"not null;default:0"`
	Author        int64  `gorm:"not null;default:0"`
	CommentStatus string `gorm:"size:20;not null;default:'open'"`
	PingStatus    string `gorm:"size:20;not null;default:'open'"`
	Password      string `gorm:"size:255;not null;default:''"`
	MimeType      string `gorm:"size:100;not null;default:''"`
	CommentCount  int64  `gorm:"not null;default:0"`
}

func (Post) TableName() string {
	return "wp_posts"
}

type Comment struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PostID      int64  `gorm:"not null;default:0;index"`
	Author      string `gorm:"type:text;not null;default:''"`
	AuthorEmail string `gorm:"size:100;not null;default:''"`
	AuthorIP    string `gorm:"column:author_ip;size:100;not null;default:''"`
	AuthorURL   string `gorm:"column:author_url;size:200;not null;default:''"`
	Date        string `gorm:"size:19;not null;default:''"`
	DateGMT     string `gorm:"size:19;not null;default:''"`
	Content     string `gorm:"type:text;not null;default:''"`
	Approved    string `gorm:"size:20;not null;default:'1'"`
	Type        string `gorm:"size:20;not null;default:''"`
	Parent      int64  `gorm:"not null;default:0"`
	UserID      int64  `gorm:"not null;default:0"`
}

func (Comment) TableName() string {
	return "wp_comments"
}

// Meta rows share one shape; the table is chosen per object kind.
type Meta struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ObjectID  int64  `gorm:"not null;index"`
	MetaKey   string `gorm:"size:255;not null;index"`
	MetaValue string `gorm:"type:text;not null;default:''"`
}

var MetaTables = []string{"wp_postmeta", "wp_termmeta", "wp_commentmeta", "wp_usermeta"}

type Option struct {
	Name     string `gorm:"primaryKey;size:191"`
	Value    string `gorm:"type:text;not null;default:''"`
	Autoload string `gorm:"size:20;not null;default:'yes'"`
}

func (Option) TableName() string {
	return "wp_options"
}
