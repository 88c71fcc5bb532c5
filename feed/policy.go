package feed

import (
	"time"

	"github.com/global-nexus/newscache/querycache"
)

// Staleness windows per resource. Identity-sensitive queries get a zero
// window: their result depends on who is asking, so a cached value from a
// previous (possibly anonymous) session must never be reused.
const (
	staleArticles    = 60 * time.Second
	staleBreaking    = 30 * time.Second
	staleCitizen     = 30 * time.Second
	staleComments    = 30 * time.Second
	staleMedia       = 120 * time.Second
	staleIdentity    = 0
	staleRegistry    = 30 * time.Second
	stalePageContent = 120 * time.Second
)

// Background refetch intervals for resources that change under the reader.
const (
	pollBreaking = 60 * time.Second
	pollComments = 60 * time.Second
)

var (
	keyArticles           = querycache.NewKey("articles")
	keyArticlesBreaking   = querycache.NewKey("articles", "breaking")
	keyArticlesFeatured   = querycache.NewKey("articles", "featured")
	keyCitizenPosts       = querycache.NewKey("citizenPosts")
	keyMediaItems         = querycache.NewKey("mediaItems")
	keyCurrentUserProfile = querycache.NewKey("currentUserProfile")
	keyMyProfile          = querycache.NewKey("myProfile")
	keyIsAdmin            = querycache.NewKey("isAdmin")
	keyUserRegistry       = querycache.NewKey("userRegistry")
)

func keyArticlesByCategory(category string) querycache.Key {
	return querycache.NewKey("articles", "category", category)
}

func keyCommentsByArticle(id string) querycache.Key {
	return querycache.NewKey("comments", "article", id)
}

func keyCommentsByPost(id string) querycache.Key {
	return querycache.NewKey("comments", "post", id)
}

func keyPageContent(key string) querycache.Key {
	return querycache.NewKey("pageContent", key)
}
