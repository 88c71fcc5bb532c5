package nexus

import "time"

// UniqueID is an opaque identifier assigned by the backend to articles,
// posts, comments and media items.
type UniqueID int64

// Timestamp is a nanosecond epoch value as emitted by the backend.
type Timestamp int64

// Time converts the nanosecond epoch to a wall-clock time with millisecond
// precision, matching how the platform renders publication dates.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts) / 1e6)
}

// ArticleCategory is a fixed editorial section.
type ArticleCategory string

const (
	CategoryEntertainment ArticleCategory = "entertainment"
	CategoryTechnology    ArticleCategory = "technology"
	CategoryBusiness      ArticleCategory = "business"
	CategoryIndia         ArticleCategory = "india"
	CategorySports        ArticleCategory = "sports"
	CategoryWorld         ArticleCategory = "world"
)

// CitizenPostStatus is the moderation state of a citizen-submitted report.
type CitizenPostStatus string

const (
	PostPending  CitizenPostStatus = "pending"
	PostApproved CitizenPostStatus = "approved"
	PostRejected CitizenPostStatus = "rejected"
)

// MediaType classifies gallery items.
type MediaType string

const (
	MediaVideo   MediaType = "video"
	MediaReel    MediaType = "reel"
	MediaPodcast MediaType = "podcast"
)

// UserRole is the role recorded in the user registry.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

// Article is a staff-published story. Title and body carry both language
// variants; the client picks one at render time.
type Article struct {
	ID          UniqueID        `json:"id"`
	Title       string          `json:"title"`
	TitleHindi  string          `json:"titleHindi"`
	Body        string          `json:"body"`
	BodyHindi   string          `json:"bodyHindi"`
	Category    ArticleCategory `json:"category"`
	Author      string          `json:"author"`
	AuthorRole  string          `json:"authorRole"`
	ImageURL    string          `json:"imageUrl"`
	IsBreaking  bool            `json:"isBreaking"`
	IsFeatured  bool            `json:"isFeatured"`
	PublishedAt Timestamp       `json:"publishedAt"`
}

// ArticleDraft carries the fields of a new or updated article.
type ArticleDraft struct {
	Title      string          `json:"title"`
	TitleHindi string          `json:"titleHindi"`
	Body       string          `json:"body"`
	BodyHindi  string          `json:"bodyHindi"`
	Category   ArticleCategory `json:"category"`
	Author     string          `json:"author"`
	AuthorRole string          `json:"authorRole"`
	ImageURL   string          `json:"imageUrl"`
	IsBreaking bool            `json:"isBreaking"`
	IsFeatured bool            `json:"isFeatured"`
}

// CitizenPost is a citizen-submitted report awaiting or past moderation.
type CitizenPost struct {
	ID              UniqueID          `json:"id"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Category        ArticleCategory   `json:"category"`
	AuthorName      string            `json:"authorName"`
	AuthorPrincipal Principal         `json:"authorPrincipal"`
	ImageURL        string            `json:"imageUrl"`
	Status          CitizenPostStatus `json:"status"`
	PublishedAt     Timestamp         `json:"publishedAt"`
}

// CitizenPostDraft carries the fields of a new citizen report.
type CitizenPostDraft struct {
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Category   ArticleCategory `json:"category"`
	AuthorName string          `json:"authorName"`
	ImageURL   string          `json:"imageUrl"`
}

// Comment is attached to either an article or a citizen post.
type Comment struct {
	ID              UniqueID         `json:"id"`
	ArticleID       Option[UniqueID] `json:"articleId"`
	PostID          Option[UniqueID] `json:"postId"`
	AuthorName      string           `json:"authorName"`
	AuthorPrincipal Principal        `json:"authorPrincipal"`
	Body            string           `json:"body"`
	CreatedAt       Timestamp        `json:"createdAt"`
}

// MediaItem is a multimedia gallery entry.
type MediaItem struct {
	ID           UniqueID  `json:"id"`
	Title        string    `json:"title"`
	MediaType    MediaType `json:"mediaType"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	EmbedURL     string    `json:"embedUrl"`
	PublishedAt  Timestamp `json:"publishedAt"`
}

// MediaItemDraft carries the fields of a new media item.
type MediaItemDraft struct {
	Title        string    `json:"title"`
	MediaType    MediaType `json:"mediaType"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	EmbedURL     string    `json:"embedUrl"`
}

// UserProfile is the caller-editable public profile.
type UserProfile struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// UserRegistryEntry is the caller's own registry record.
type UserRegistryEntry struct {
	Role   UserRole `json:"role"`
	AutoID string   `json:"autoId"`
}

// RegistryRecord is one row of the admin-visible user registry.
type RegistryRecord struct {
	Principal Principal `json:"principal"`
	Role      UserRole  `json:"role"`
	AutoID    string    `json:"autoId"`
}
