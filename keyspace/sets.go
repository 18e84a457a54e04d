package keyspace

// The functions below are the whole invalidation policy. Each returns every
// name whose cached value can change when the mutation commits.

// PostCreated covers a new post owned by ownerID.
func PostCreated(ownerID int64) []string {
	return newSet().postWide().owner(ownerID).list()
}

// PostChanged covers an update or moderation of postID. Pass both owners when
// the update moved the post to another user.
func PostChanged(postID int64, ownerIDs ...int64) []string {
	s := newSet().add(Post(postID)).postWide()
	for _, uid := range ownerIDs {
		s.owner(uid)
	}
	return s.list()
}

// PostDeleted covers removal of postID together with its comments.
func PostDeleted(postID, ownerID int64) []string {
	return newSet().
		add(Post(postID)).
		postWide().
		owner(ownerID).
		add(CommentsScope(postID), TopLevelComments(postID)).
		list()
}

// CommentChanged covers create, update, delete and moderation of a comment
// on postID, a post owned by postOwnerID. Every post summary carries a
// comment count, so the listings that hold summaries go too.
func CommentChanged(postID, postOwnerID int64) []string {
	return newSet().
		add(Post(postID), CommentsScope(postID), TopLevelComments(postID)).
		add(PostsListScope, Trending, WelcomeRecent).
		owner(postOwnerID).
		list()
}

// PostViewed covers a view-count increment. The post's own entry and the
// listing pages are left alone: views do not change a post's version, and
// their view counts may lag until TTL.
func PostViewed(postOwnerID int64) []string {
	return newSet().add(Trending, UserStats(postOwnerID), SystemStats, WelcomeStats).list()
}

// UserCreated covers a new account.
func UserCreated() []string {
	return []string{SystemStats}
}

// set keeps insertion order and drops duplicates.
type set struct {
	seen  map[string]struct{}
	names []string
}

func newSet() *set { return &set{seen: make(map[string]struct{}, 16)} }

func (s *set) add(names ...string) *set {
	for _, n := range names {
		if _, ok := s.seen[n]; ok {
			continue
		}
		s.seen[n] = struct{}{}
		s.names = append(s.names, n)
	}
	return s
}

// postWide is every aggregate that reads across all posts.
func (s *set) postWide() *set {
	return s.add(PostsListScope, Categories, Trending, SystemStats, WelcomeStats, WelcomeRecent)
}

func (s *set) owner(uid int64) *set {
	return s.add(UserStats(uid), UserRecentPosts(uid))
}

func (s *set) list() []string { return s.names }
