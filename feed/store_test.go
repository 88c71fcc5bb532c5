package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/global-nexus/newscache/nexus"
)

// fakeActor implements the subset of the actor surface the tests exercise.
// The embedded interface is nil, so an unexpected call panics loudly.
type fakeActor struct {
	nexus.Actor

	articlesCalls  int32
	commentCalls   map[string]*int32
	registryCalls  int32
	profileCalls   int32
	myProfileCalls int32
	adminCalls     int32
	pageCalls      int32

	articles    []nexus.Article
	registry    []nexus.RegistryRecord
	profileErr  error
	registryErr error
	adminErr    error
	updateErr   error

	assignedPrincipal nexus.Principal
	assignedRole      nexus.UserRole
	revokedPrincipal  nexus.Principal
	assignCalls       int32
	revokeCalls       int32
}

func newFakeActor() *fakeActor {
	return &fakeActor{
		commentCalls: make(map[string]*int32),
	}
}

func (f *fakeActor) commentCounter(key string) *int32 {
	c, ok := f.commentCalls[key]
	if !ok {
		c = new(int32)
		f.commentCalls[key] = c
	}
	return c
}

func (f *fakeActor) GetArticles(ctx context.Context) ([]nexus.Article, error) {
	atomic.AddInt32(&f.articlesCalls, 1)
	return f.articles, nil
}

func (f *fakeActor) CreateArticle(ctx context.Context, draft nexus.ArticleDraft) (nexus.UniqueID, error) {
	return 100, nil
}

func (f *fakeActor) UpdateArticle(ctx context.Context, id nexus.UniqueID, draft nexus.ArticleDraft) error {
	return f.updateErr
}

func (f *fakeActor) GetCommentsByArticle(ctx context.Context, articleID nexus.UniqueID) ([]nexus.Comment, error) {
	atomic.AddInt32(f.commentCounter("article/"+formatID(articleID)), 1)
	return []nexus.Comment{}, nil
}

func (f *fakeActor) GetCommentsByPost(ctx context.Context, postID nexus.UniqueID) ([]nexus.Comment, error) {
	atomic.AddInt32(f.commentCounter("post/"+formatID(postID)), 1)
	return []nexus.Comment{}, nil
}

func (f *fakeActor) AddComment(ctx context.Context, articleID, postID nexus.Option[nexus.UniqueID], authorName, body string) (nexus.UniqueID, error) {
	return 1, nil
}

func (f *fakeActor) GetCallerUserProfile(ctx context.Context) (nexus.Option[nexus.UserProfile], error) {
	atomic.AddInt32(&f.profileCalls, 1)
	if f.profileErr != nil {
		return nexus.None[nexus.UserProfile](), f.profileErr
	}
	return nexus.Some(nexus.UserProfile{Name: "Asha"}), nil
}

func (f *fakeActor) GetMyProfile(ctx context.Context) (nexus.Option[nexus.UserRegistryEntry], error) {
	atomic.AddInt32(&f.myProfileCalls, 1)
	return nexus.Some(nexus.UserRegistryEntry{Role: nexus.RoleUser, AutoID: "GN-0001"}), nil
}

func (f *fakeActor) IsAdminCaller(ctx context.Context) (bool, error) {
	atomic.AddInt32(&f.adminCalls, 1)
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return true, nil
}

func (f *fakeActor) GetUserRegistry(ctx context.Context) ([]nexus.RegistryRecord, error) {
	atomic.AddInt32(&f.registryCalls, 1)
	if f.registryErr != nil {
		return nil, f.registryErr
	}
	return f.registry, nil
}

func (f *fakeActor) AssignRoleWithAutoID(ctx context.Context, user nexus.Principal, role nexus.UserRole) (string, error) {
	atomic.AddInt32(&f.assignCalls, 1)
	f.assignedPrincipal = user
	f.assignedRole = role
	return "GN-0042", nil
}

func (f *fakeActor) RevokeRole(ctx context.Context, user nexus.Principal) error {
	atomic.AddInt32(&f.revokeCalls, 1)
	f.revokedPrincipal = user
	return nil
}

func (f *fakeActor) GetPageContent(ctx context.Context, key string) (nexus.Option[string], error) {
	atomic.AddInt32(&f.pageCalls, 1)
	return nexus.Some("content of " + key), nil
}

func (f *fakeActor) SavePageContent(ctx context.Context, key, content string) error {
	return nil
}

const validPrincipal = "ryjl3-tyaaa-aaaaa-aaaba-cai"

func rejection(status int, msg string) error {
	return &nexus.CallError{Method: "test", StatusCode: status, Message: msg}
}

func TestArticlesCachedAcrossReads(t *testing.T) {
	actor := newFakeActor()
	actor.articles = []nexus.Article{{ID: 1, Title: "Monsoon update"}}
	s := NewStore(actor)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		articles, err := s.Articles(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(articles) != 1 || articles[0].ID != 1 {
			t.Fatalf("unexpected articles %+v", articles)
		}
	}

	if n := atomic.LoadInt32(&actor.articlesCalls); n != 1 {
		t.Fatalf("unexpected backend call count %d; expecting 1", n)
	}
}

func TestCreateArticleInvalidatesArticleLists(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	if _, err := s.Articles(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	id, err := s.CreateArticle(ctx, nexus.ArticleDraft{Title: "New story"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if id != 100 {
		t.Fatalf("unexpected id %d; expecting 100", id)
	}
	if _, err := s.Articles(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if n := atomic.LoadInt32(&actor.articlesCalls); n != 2 {
		t.Fatalf("unexpected backend call count %d; expecting refetch after create", n)
	}
}

func TestFailedMutationKeepsCachedArticles(t *testing.T) {
	actor := newFakeActor()
	actor.updateErr = rejection(400, "Article not found")
	s := NewStore(actor)
	ctx := context.Background()

	if _, err := s.Articles(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err := s.UpdateArticle(ctx, 404, nexus.ArticleDraft{})
	if err == nil {
		t.Fatalf("expecting non-nil error")
	}
	if err.Error() != "Article not found" {
		t.Fatalf("unexpected error message %q; expecting the backend text verbatim", err.Error())
	}
	if _, err := s.Articles(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if n := atomic.LoadInt32(&actor.articlesCalls); n != 1 {
		t.Fatalf("unexpected backend call count %d; a failed mutation must not invalidate", n)
	}
}

func TestAddCommentInvalidatesOnlyAffectedThreads(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	mustComments := func(read func() ([]nexus.Comment, error)) {
		t.Helper()
		if _, err := read(); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	mustComments(func() ([]nexus.Comment, error) { return s.CommentsByArticle(ctx, 1) })
	mustComments(func() ([]nexus.Comment, error) { return s.CommentsByArticle(ctx, 2) })
	mustComments(func() ([]nexus.Comment, error) { return s.CommentsByPost(ctx, 3) })

	if _, err := s.AddComment(ctx, nexus.Some(nexus.UniqueID(1)), nexus.None[nexus.UniqueID](), "Asha", "good report"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	mustComments(func() ([]nexus.Comment, error) { return s.CommentsByArticle(ctx, 1) })
	mustComments(func() ([]nexus.Comment, error) { return s.CommentsByArticle(ctx, 2) })
	mustComments(func() ([]nexus.Comment, error) { return s.CommentsByPost(ctx, 3) })

	if n := atomic.LoadInt32(actor.commentCounter("article/1")); n != 2 {
		t.Fatalf("unexpected call count %d for the commented article; expecting refetch", n)
	}
	if n := atomic.LoadInt32(actor.commentCounter("article/2")); n != 1 {
		t.Fatalf("unexpected call count %d for an unrelated article; expecting cached", n)
	}
	if n := atomic.LoadInt32(actor.commentCounter("post/3")); n != 1 {
		t.Fatalf("unexpected call count %d for an unrelated post; expecting cached", n)
	}
}

func TestAssignRoleRefreshesRegistry(t *testing.T) {
	actor := newFakeActor()
	actor.registry = []nexus.RegistryRecord{{Principal: validPrincipal, Role: nexus.RoleUser}}
	s := NewStore(actor)
	ctx := context.Background()

	if _, err := s.UserRegistry(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	autoID, err := s.AssignRole(ctx, validPrincipal, nexus.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if autoID != "GN-0042" {
		t.Fatalf("unexpected auto id %q; expecting %q", autoID, "GN-0042")
	}
	if actor.assignedPrincipal != validPrincipal || actor.assignedRole != nexus.RoleAdmin {
		t.Fatalf("unexpected assignment %q/%q", actor.assignedPrincipal, actor.assignedRole)
	}

	if _, err := s.UserRegistry(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n := atomic.LoadInt32(&actor.registryCalls); n != 2 {
		t.Fatalf("unexpected registry call count %d; a role change must refresh the registry", n)
	}
}

func TestAssignRoleRejectsInvalidPrincipalLocally(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	if _, err := s.UserRegistry(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if _, err := s.AssignRole(ctx, "not a principal", nexus.RoleAdmin); !errors.Is(err, nexus.ErrInvalidPrincipal) {
		t.Fatalf("expecting ErrInvalidPrincipal; got %v", err)
	}
	if n := atomic.LoadInt32(&actor.assignCalls); n != 0 {
		t.Fatalf("backend was called %d times for invalid principal text; expecting 0", n)
	}

	if _, err := s.UserRegistry(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n := atomic.LoadInt32(&actor.registryCalls); n != 1 {
		t.Fatalf("unexpected registry call count %d; a rejected input must not invalidate", n)
	}
}

func TestRevokeRoleValidatesPrincipal(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	if err := s.RevokeRole(ctx, "bad--input"); !errors.Is(err, nexus.ErrInvalidPrincipal) {
		t.Fatalf("expecting ErrInvalidPrincipal; got %v", err)
	}
	if n := atomic.LoadInt32(&actor.revokeCalls); n != 0 {
		t.Fatalf("backend was called %d times for invalid principal text; expecting 0", n)
	}

	if err := s.RevokeRole(ctx, validPrincipal); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if actor.revokedPrincipal != validPrincipal {
		t.Fatalf("unexpected revoked principal %q", actor.revokedPrincipal)
	}
}

func TestCallerProfileAbsorbsRejection(t *testing.T) {
	actor := newFakeActor()
	actor.profileErr = rejection(403, "Unauthorized: caller has no profile")
	s := NewStore(actor)

	profile, err := s.CallerUserProfile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s; rejections must fold into absence", err)
	}
	if !profile.IsNone() {
		t.Fatalf("expecting absent profile for a rejected caller")
	}
}

func TestCallerProfileSurfacesTransportErrors(t *testing.T) {
	actor := newFakeActor()
	actor.profileErr = errors.New("connection refused")
	s := NewStore(actor)

	if _, err := s.CallerUserProfile(context.Background()); err == nil {
		t.Fatalf("expecting transport errors to surface")
	}
}

func TestIsAdminRejectionMeansFalse(t *testing.T) {
	actor := newFakeActor()
	actor.adminErr = rejection(401, "Unauthorized")
	s := NewStore(actor)

	isAdmin, err := s.IsAdmin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if isAdmin {
		t.Fatalf("a rejected caller must not count as admin")
	}
}

func TestUserRegistryRejectionMeansEmpty(t *testing.T) {
	actor := newFakeActor()
	actor.registryErr = rejection(403, "Unauthorized: Only admins can view the registry")
	s := NewStore(actor)

	records, err := s.UserRegistry(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(records) != 0 {
		t.Fatalf("unexpected records %+v; expecting empty registry for unauthorized callers", records)
	}
}

func TestIdentityQueriesAlwaysRefetch(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.MyProfile(ctx); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := s.IsAdmin(ctx); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	if n := atomic.LoadInt32(&actor.myProfileCalls); n != 2 {
		t.Fatalf("unexpected call count %d for an identity-sensitive query; expecting 2", n)
	}
	if n := atomic.LoadInt32(&actor.adminCalls); n != 2 {
		t.Fatalf("unexpected call count %d for an identity-sensitive query; expecting 2", n)
	}
}

func TestResetDropsEverything(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	if _, err := s.Articles(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	s.Reset()
	if _, err := s.Articles(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if n := atomic.LoadInt32(&actor.articlesCalls); n != 2 {
		t.Fatalf("unexpected backend call count %d after reset; expecting 2", n)
	}
}

func TestSavePageContentInvalidatesOneKey(t *testing.T) {
	actor := newFakeActor()
	s := NewStore(actor)
	ctx := context.Background()

	mustPage := func(key string) {
		t.Helper()
		v, err := s.PageContent(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got := v.ValueOr(""); got != "content of "+key {
			t.Fatalf("unexpected content %q", got)
		}
	}
	mustPage("about")
	mustPage("contact")

	if err := s.SavePageContent(ctx, "about", "updated"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	mustPage("about")
	mustPage("contact")

	if n := atomic.LoadInt32(&actor.pageCalls); n != 3 {
		t.Fatalf("unexpected call count %d; expecting one refetch of the saved key only", n)
	}
}
