package feed

import (
	"context"
	"strconv"

	"github.com/global-nexus/newscache/log"
	"github.com/global-nexus/newscache/nexus"
	"github.com/global-nexus/newscache/querycache"
)

// Store is the typed read/write surface over the news backend. Reads go
// through a shared query cache with per-resource staleness windows; writes
// invalidate the query keys they affect before returning, so a read issued
// right after a successful write observes fresh data.
//
// A Store is tied to one caller identity. On login or logout build a new
// Store, or call Reset, so per-user results cannot leak across sessions.
type Store struct {
	actor nexus.Actor
	cache *querycache.Cache
}

// NewStore returns a Store with an empty cache.
func NewStore(actor nexus.Actor) *Store {
	return &Store{
		actor: actor,
		cache: querycache.New(),
	}
}

// Initialize performs the idempotent backend bootstrap. Failures are
// expected on anonymous sessions and are swallowed.
func (s *Store) Initialize(ctx context.Context) {
	if err := s.actor.Initialize(ctx); err != nil {
		log.Debugf("feed: initialize failed (ignored): %s", err)
	}
}

// Reset drops every cached result. Must be called on any
// authentication-state transition.
func (s *Store) Reset() {
	s.cache.Clear()
}

// Stats exposes the underlying cache counters.
func (s *Store) Stats() querycache.Stats {
	return s.cache.Stats()
}

func value[T any](v interface{}) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

func formatID(id nexus.UniqueID) string {
	return strconv.FormatInt(int64(id), 10)
}

// ── Articles ────────────────────────────────────────────────────────────

func (s *Store) Articles(ctx context.Context) ([]nexus.Article, error) {
	v, err := s.cache.Read(ctx, keyArticles, staleArticles, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetArticles(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.Article](v), nil
}

func (s *Store) ArticlesByCategory(ctx context.Context, category nexus.ArticleCategory) ([]nexus.Article, error) {
	key := keyArticlesByCategory(string(category))
	v, err := s.cache.Read(ctx, key, staleArticles, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetArticlesByCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.Article](v), nil
}

func (s *Store) BreakingNews(ctx context.Context) ([]nexus.Article, error) {
	v, err := s.cache.Read(ctx, keyArticlesBreaking, staleBreaking, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetBreakingNews(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.Article](v), nil
}

func (s *Store) FeaturedArticles(ctx context.Context) ([]nexus.Article, error) {
	v, err := s.cache.Read(ctx, keyArticlesFeatured, staleArticles, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetFeaturedArticles(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.Article](v), nil
}

func (s *Store) CreateArticle(ctx context.Context, draft nexus.ArticleDraft) (nexus.UniqueID, error) {
	v, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return s.actor.CreateArticle(ctx, draft)
	}, keyArticles)
	if err != nil {
		return 0, err
	}
	return value[nexus.UniqueID](v), nil
}

func (s *Store) UpdateArticle(ctx context.Context, id nexus.UniqueID, draft nexus.ArticleDraft) error {
	_, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.UpdateArticle(ctx, id, draft)
	}, keyArticles)
	return err
}

func (s *Store) DeleteArticle(ctx context.Context, id nexus.UniqueID) error {
	_, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.DeleteArticle(ctx, id)
	}, keyArticles)
	return err
}

// StartBreakingNewsPoller keeps the breaking-news list refreshed in the
// background. Close the returned poller when the ticker leaves the screen.
func (s *Store) StartBreakingNewsPoller() *querycache.Poller {
	return querycache.NewPoller(s.cache, keyArticlesBreaking, pollBreaking, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetBreakingNews(ctx)
	})
}

// ── Citizen posts ───────────────────────────────────────────────────────

func (s *Store) CitizenPosts(ctx context.Context) ([]nexus.CitizenPost, error) {
	v, err := s.cache.Read(ctx, keyCitizenPosts, staleCitizen, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetCitizenPosts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.CitizenPost](v), nil
}

func (s *Store) CreateCitizenPost(ctx context.Context, draft nexus.CitizenPostDraft) (nexus.UniqueID, error) {
	v, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return s.actor.CreateCitizenPost(ctx, draft)
	}, keyCitizenPosts)
	if err != nil {
		return 0, err
	}
	return value[nexus.UniqueID](v), nil
}

func (s *Store) UpdateCitizenPostStatus(ctx context.Context, postID nexus.UniqueID, status nexus.CitizenPostStatus) error {
	_, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.UpdateArticleStatus(ctx, postID, status)
	}, keyCitizenPosts)
	return err
}

// ── Comments ────────────────────────────────────────────────────────────

func (s *Store) CommentsByArticle(ctx context.Context, articleID nexus.UniqueID) ([]nexus.Comment, error) {
	key := keyCommentsByArticle(formatID(articleID))
	v, err := s.cache.Read(ctx, key, staleComments, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetCommentsByArticle(ctx, articleID)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.Comment](v), nil
}

func (s *Store) CommentsByPost(ctx context.Context, postID nexus.UniqueID) ([]nexus.Comment, error) {
	key := keyCommentsByPost(formatID(postID))
	v, err := s.cache.Read(ctx, key, staleComments, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetCommentsByPost(ctx, postID)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.Comment](v), nil
}

// AddComment attaches a comment to an article, a citizen post, or both, and
// invalidates only the affected comment threads.
func (s *Store) AddComment(ctx context.Context, articleID, postID nexus.Option[nexus.UniqueID], authorName, body string) (nexus.UniqueID, error) {
	var invalidates []querycache.Key
	if id, ok := articleID.Get(); ok {
		invalidates = append(invalidates, keyCommentsByArticle(formatID(id)))
	}
	if id, ok := postID.Get(); ok {
		invalidates = append(invalidates, keyCommentsByPost(formatID(id)))
	}

	v, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return s.actor.AddComment(ctx, articleID, postID, authorName, body)
	}, invalidates...)
	if err != nil {
		return 0, err
	}
	return value[nexus.UniqueID](v), nil
}

// StartCommentsPoller keeps one article's comment thread refreshed while it
// is on screen.
func (s *Store) StartCommentsPoller(articleID nexus.UniqueID) *querycache.Poller {
	key := keyCommentsByArticle(formatID(articleID))
	return querycache.NewPoller(s.cache, key, pollComments, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetCommentsByArticle(ctx, articleID)
	})
}

// ── Media ───────────────────────────────────────────────────────────────

func (s *Store) MediaItems(ctx context.Context) ([]nexus.MediaItem, error) {
	v, err := s.cache.Read(ctx, keyMediaItems, staleMedia, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetMediaItems(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.MediaItem](v), nil
}

func (s *Store) CreateMediaItem(ctx context.Context, draft nexus.MediaItemDraft) (nexus.UniqueID, error) {
	v, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return s.actor.CreateMediaItem(ctx, draft)
	}, keyMediaItems)
	if err != nil {
		return 0, err
	}
	return value[nexus.UniqueID](v), nil
}

func (s *Store) DeleteMediaItem(ctx context.Context, id nexus.UniqueID) error {
	_, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.DeleteMediaItem(ctx, id)
	}, keyMediaItems)
	return err
}

// ── Identity ────────────────────────────────────────────────────────────

// CallerUserProfile returns the caller's profile, or None when the caller
// has no profile yet. The backend rejects the call for unregistered
// callers; that rejection is folded into None so the profile-setup flow can
// key off absence alone.
func (s *Store) CallerUserProfile(ctx context.Context) (nexus.Option[nexus.UserProfile], error) {
	v, err := s.cache.Read(ctx, keyCurrentUserProfile, staleIdentity, func(ctx context.Context) (interface{}, error) {
		p, err := s.actor.GetCallerUserProfile(ctx)
		if err != nil {
			if nexus.IsRejection(err) {
				return nexus.None[nexus.UserProfile](), nil
			}
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nexus.None[nexus.UserProfile](), err
	}
	return value[nexus.Option[nexus.UserProfile]](v), nil
}

func (s *Store) SaveCallerUserProfile(ctx context.Context, profile nexus.UserProfile) error {
	_, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.SaveCallerUserProfile(ctx, profile)
	}, keyCurrentUserProfile)
	return err
}

// MyProfile returns the caller's registry record, or None for callers the
// backend rejects (unregistered or anonymous).
func (s *Store) MyProfile(ctx context.Context) (nexus.Option[nexus.UserRegistryEntry], error) {
	v, err := s.cache.Read(ctx, keyMyProfile, staleIdentity, func(ctx context.Context) (interface{}, error) {
		p, err := s.actor.GetMyProfile(ctx)
		if err != nil {
			if nexus.IsRejection(err) {
				return nexus.None[nexus.UserRegistryEntry](), nil
			}
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nexus.None[nexus.UserRegistryEntry](), err
	}
	return value[nexus.Option[nexus.UserRegistryEntry]](v), nil
}

// IsAdmin reports whether the caller holds the admin role. Rejections count
// as "not admin".
func (s *Store) IsAdmin(ctx context.Context) (bool, error) {
	v, err := s.cache.Read(ctx, keyIsAdmin, staleIdentity, func(ctx context.Context) (interface{}, error) {
		ok, err := s.actor.IsAdminCaller(ctx)
		if err != nil {
			if nexus.IsRejection(err) {
				return false, nil
			}
			return nil, err
		}
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return value[bool](v), nil
}

// ── Registry (admin) ────────────────────────────────────────────────────

// UserRegistry returns all registered users. Unauthorized callers get an
// empty registry rather than an error.
func (s *Store) UserRegistry(ctx context.Context) ([]nexus.RegistryRecord, error) {
	v, err := s.cache.Read(ctx, keyUserRegistry, staleRegistry, func(ctx context.Context) (interface{}, error) {
		records, err := s.actor.GetUserRegistry(ctx)
		if err != nil {
			if nexus.IsRejection(err) {
				return []nexus.RegistryRecord{}, nil
			}
			return nil, err
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return value[[]nexus.RegistryRecord](v), nil
}

// AssignRole validates the principal text locally, assigns the role and
// invalidates both the registry and the caller's own record. Backend errors
// surface verbatim for the role-management form.
func (s *Store) AssignRole(ctx context.Context, principalText string, role nexus.UserRole) (string, error) {
	principal, err := nexus.ParsePrincipal(principalText)
	if err != nil {
		return "", err
	}

	v, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return s.actor.AssignRoleWithAutoID(ctx, principal, role)
	}, keyUserRegistry, keyMyProfile)
	if err != nil {
		return "", err
	}
	return value[string](v), nil
}

// RevokeRole validates the principal text locally and removes the user's
// role assignment.
func (s *Store) RevokeRole(ctx context.Context, principalText string) error {
	principal, err := nexus.ParsePrincipal(principalText)
	if err != nil {
		return err
	}

	_, err = s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.RevokeRole(ctx, principal)
	}, keyUserRegistry, keyMyProfile)
	return err
}

// ── Page content ────────────────────────────────────────────────────────

func (s *Store) PageContent(ctx context.Context, key string) (nexus.Option[string], error) {
	v, err := s.cache.Read(ctx, keyPageContent(key), stalePageContent, func(ctx context.Context) (interface{}, error) {
		return s.actor.GetPageContent(ctx, key)
	})
	if err != nil {
		return nexus.None[string](), err
	}
	return value[nexus.Option[string]](v), nil
}

func (s *Store) SavePageContent(ctx context.Context, key, content string) error {
	_, err := s.cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.actor.SavePageContent(ctx, key, content)
	}, keyPageContent(key))
	return err
}
