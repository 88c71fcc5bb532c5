package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/global-nexus/newscache/config"
)

// Actor is the RPC surface of the news backend. Queries are cacheable reads;
// everything else mutates backend state and is expected to invalidate the
// related query keys on success.
type Actor interface {
	// Bootstrap. Idempotent; seeds data on first call.
	Initialize(ctx context.Context) error
	IsInitializedActor(ctx context.Context) (bool, error)

	// Queries.
	GetArticles(ctx context.Context) ([]Article, error)
	GetArticlesByCategory(ctx context.Context, category ArticleCategory) ([]Article, error)
	GetBreakingNews(ctx context.Context) ([]Article, error)
	GetFeaturedArticles(ctx context.Context) ([]Article, error)
	GetCitizenPosts(ctx context.Context) ([]CitizenPost, error)
	GetCommentsByArticle(ctx context.Context, articleID UniqueID) ([]Comment, error)
	GetCommentsByPost(ctx context.Context, postID UniqueID) ([]Comment, error)
	GetMediaItems(ctx context.Context) ([]MediaItem, error)
	GetCallerUserProfile(ctx context.Context) (Option[UserProfile], error)
	GetUserProfile(ctx context.Context, user Principal) (Option[UserProfile], error)
	GetCallerUserRole(ctx context.Context) (UserRole, error)
	GetMyProfile(ctx context.Context) (Option[UserRegistryEntry], error)
	GetUserRegistry(ctx context.Context) ([]RegistryRecord, error)
	GetPageContent(ctx context.Context, key string) (Option[string], error)
	IsAdminCaller(ctx context.Context) (bool, error)
	IsEditorCaller(ctx context.Context) (bool, error)

	// Mutations.
	CreateArticle(ctx context.Context, draft ArticleDraft) (UniqueID, error)
	UpdateArticle(ctx context.Context, id UniqueID, draft ArticleDraft) error
	DeleteArticle(ctx context.Context, id UniqueID) error
	CreateCitizenPost(ctx context.Context, draft CitizenPostDraft) (UniqueID, error)
	UpdateArticleStatus(ctx context.Context, postID UniqueID, status CitizenPostStatus) error
	AddComment(ctx context.Context, articleID, postID Option[UniqueID], authorName, body string) (UniqueID, error)
	SaveCallerUserProfile(ctx context.Context, profile UserProfile) error
	AssignCallerUserRole(ctx context.Context, user Principal, role UserRole) error
	AssignRoleWithAutoID(ctx context.Context, user Principal, role UserRole) (string, error)
	RevokeRole(ctx context.Context, user Principal) error
	CreateMediaItem(ctx context.Context, draft MediaItemDraft) (UniqueID, error)
	DeleteMediaItem(ctx context.Context, id UniqueID) error
	SavePageContent(ctx context.Context, key, content string) error
}

// Client calls the actor gateway over HTTP. Every method posts a JSON array
// of positional arguments to /api/<method> and decodes the JSON reply.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the given backend configuration.
func NewClient(cfg config.Backend) (*Client, error) {
	if len(cfg.URL) == 0 {
		return nil, fmt.Errorf("%w: `url` cannot be empty", ErrNotConnected)
	}
	timeout := time.Duration(cfg.Timeout)
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// maxErrorBodyLen caps how much of an error reply is kept for the message.
const maxErrorBodyLen = 4 << 10

func (c *Client) call(ctx context.Context, method string, args []interface{}, out interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("cannot marshal args for %q: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create request for %q: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %q: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return &CallError{
			Method:     method,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cannot read reply of %q: %w", method, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cannot decode reply of %q: %w", method, err)
	}
	return nil
}

func (c *Client) Initialize(ctx context.Context) error {
	return c.call(ctx, "initialize", nil, nil)
}

func (c *Client) IsInitializedActor(ctx context.Context) (bool, error) {
	var v bool
	err := c.call(ctx, "isInitializedActor", nil, &v)
	return v, err
}

func (c *Client) GetArticles(ctx context.Context) ([]Article, error) {
	var v []Article
	err := c.call(ctx, "getArticles", nil, &v)
	return v, err
}

func (c *Client) GetArticlesByCategory(ctx context.Context, category ArticleCategory) ([]Article, error) {
	var v []Article
	err := c.call(ctx, "getArticlesByCategory", []interface{}{category}, &v)
	return v, err
}

func (c *Client) GetBreakingNews(ctx context.Context) ([]Article, error) {
	var v []Article
	err := c.call(ctx, "getBreakingNews", nil, &v)
	return v, err
}

func (c *Client) GetFeaturedArticles(ctx context.Context) ([]Article, error) {
	var v []Article
	err := c.call(ctx, "getFeaturedArticles", nil, &v)
	return v, err
}

func (c *Client) GetCitizenPosts(ctx context.Context) ([]CitizenPost, error) {
	var v []CitizenPost
	err := c.call(ctx, "getCitizenPosts", nil, &v)
	return v, err
}

func (c *Client) GetCommentsByArticle(ctx context.Context, articleID UniqueID) ([]Comment, error) {
	var v []Comment
	err := c.call(ctx, "getCommentsByArticle", []interface{}{articleID}, &v)
	return v, err
}

func (c *Client) GetCommentsByPost(ctx context.Context, postID UniqueID) ([]Comment, error) {
	var v []Comment
	err := c.call(ctx, "getCommentsByPost", []interface{}{postID}, &v)
	return v, err
}

func (c *Client) GetMediaItems(ctx context.Context) ([]MediaItem, error) {
	var v []MediaItem
	err := c.call(ctx, "getMediaItems", nil, &v)
	return v, err
}

func (c *Client) GetCallerUserProfile(ctx context.Context) (Option[UserProfile], error) {
	var v Option[UserProfile]
	err := c.call(ctx, "getCallerUserProfile", nil, &v)
	return v, err
}

func (c *Client) GetUserProfile(ctx context.Context, user Principal) (Option[UserProfile], error) {
	var v Option[UserProfile]
	err := c.call(ctx, "getUserProfile", []interface{}{user}, &v)
	return v, err
}

func (c *Client) GetCallerUserRole(ctx context.Context) (UserRole, error) {
	var v UserRole
	err := c.call(ctx, "getCallerUserRole", nil, &v)
	return v, err
}

func (c *Client) GetMyProfile(ctx context.Context) (Option[UserRegistryEntry], error) {
	var v Option[UserRegistryEntry]
	err := c.call(ctx, "getMyProfile", nil, &v)
	return v, err
}

func (c *Client) GetUserRegistry(ctx context.Context) ([]RegistryRecord, error) {
	var v []RegistryRecord
	err := c.call(ctx, "getUserRegistry", nil, &v)
	return v, err
}

func (c *Client) GetPageContent(ctx context.Context, key string) (Option[string], error) {
	var v Option[string]
	err := c.call(ctx, "getPageContent", []interface{}{key}, &v)
	return v, err
}

func (c *Client) IsAdminCaller(ctx context.Context) (bool, error) {
	var v bool
	err := c.call(ctx, "isAdminCaller", nil, &v)
	return v, err
}

func (c *Client) IsEditorCaller(ctx context.Context) (bool, error) {
	var v bool
	err := c.call(ctx, "isEditorCaller", nil, &v)
	return v, err
}

func (c *Client) CreateArticle(ctx context.Context, d ArticleDraft) (UniqueID, error) {
	var v UniqueID
	err := c.call(ctx, "createArticle", []interface{}{
		d.Title, d.TitleHindi, d.Body, d.BodyHindi,
		d.Category, d.Author, d.AuthorRole, d.ImageURL,
		d.IsBreaking, d.IsFeatured,
	}, &v)
	return v, err
}

func (c *Client) UpdateArticle(ctx context.Context, id UniqueID, d ArticleDraft) error {
	return c.call(ctx, "updateArticle", []interface{}{
		id, d.Title, d.TitleHindi, d.Body, d.BodyHindi,
		d.Category, d.Author, d.AuthorRole, d.ImageURL,
		d.IsBreaking, d.IsFeatured,
	}, nil)
}

func (c *Client) DeleteArticle(ctx context.Context, id UniqueID) error {
	return c.call(ctx, "deleteArticle", []interface{}{id}, nil)
}

func (c *Client) CreateCitizenPost(ctx context.Context, d CitizenPostDraft) (UniqueID, error) {
	var v UniqueID
	err := c.call(ctx, "createCitizenPost", []interface{}{
		d.Title, d.Body, d.Category, d.AuthorName, d.ImageURL,
	}, &v)
	return v, err
}

func (c *Client) UpdateArticleStatus(ctx context.Context, postID UniqueID, status CitizenPostStatus) error {
	return c.call(ctx, "updateArticleStatus", []interface{}{postID, status}, nil)
}

func (c *Client) AddComment(ctx context.Context, articleID, postID Option[UniqueID], authorName, body string) (UniqueID, error) {
	var v UniqueID
	err := c.call(ctx, "addComment", []interface{}{articleID, postID, authorName, body}, &v)
	return v, err
}

func (c *Client) SaveCallerUserProfile(ctx context.Context, profile UserProfile) error {
	return c.call(ctx, "saveCallerUserProfile", []interface{}{profile}, nil)
}

func (c *Client) AssignCallerUserRole(ctx context.Context, user Principal, role UserRole) error {
	return c.call(ctx, "assignCallerUserRole", []interface{}{user, role}, nil)
}

func (c *Client) AssignRoleWithAutoID(ctx context.Context, user Principal, role UserRole) (string, error) {
	var v string
	err := c.call(ctx, "assignRoleWithAutoId", []interface{}{user, role}, &v)
	return v, err
}

func (c *Client) RevokeRole(ctx context.Context, user Principal) error {
	return c.call(ctx, "revokeRole", []interface{}{user}, nil)
}

func (c *Client) CreateMediaItem(ctx context.Context, d MediaItemDraft) (UniqueID, error) {
	var v UniqueID
	err := c.call(ctx, "createMediaItem", []interface{}{
		d.Title, d.MediaType, d.ThumbnailURL, d.EmbedURL,
	}, &v)
	return v, err
}

func (c *Client) DeleteMediaItem(ctx context.Context, id UniqueID) error {
	return c.call(ctx, "deleteMediaItem", []interface{}{id}, nil)
}

func (c *Client) SavePageContent(ctx context.Context, key, content string) error {
	return c.call(ctx, "savePageContent", []interface{}{key, content}, nil)
}

var _ Actor = (*Client)(nil)
