package keyspace

import (
	"slices"
	"testing"
)

func TestKeyNames(t *testing.T) {
	cases := []struct{ got, want string }{
		{Post(42), "post:42"},
		{TopLevelComments(3), "comments:toplevel:post:3"},
		{UserStats(9), "dashboard:stats:user:9"},
		{UserRecentPosts(9), "dashboard:recent-posts:user:9"},
		{CommentsScope(3), "comments:post:3"},
		{PostsList("ab").Name, "posts:list:ab"},
		{Comments(3, "cd").Name, "comments:post:3:cd"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("got %q want %q", c.got, c.want)
		}
	}
	if PostsList("ab").Scope != PostsListScope {
		t.Fatalf("listing must be scoped under %q", PostsListScope)
	}
	if Comments(3, "cd").Scope != CommentsScope(3) {
		t.Fatalf("comment listing scope = %q", Comments(3, "cd").Scope)
	}
}

func mustContain(t *testing.T, set []string, names ...string) {
	t.Helper()
	for _, n := range names {
		if !slices.Contains(set, n) {
			t.Fatalf("%v missing %q", set, n)
		}
	}
}

func mustNotContain(t *testing.T, set []string, names ...string) {
	t.Helper()
	for _, n := range names {
		if slices.Contains(set, n) {
			t.Fatalf("%v must not contain %q", set, n)
		}
	}
}

func TestPostCreated(t *testing.T) {
	s := PostCreated(7)
	mustContain(t, s, PostsListScope, Categories, Trending, SystemStats, WelcomeStats, WelcomeRecent,
		UserStats(7), UserRecentPosts(7))
}

func TestPostChangedIncludesBothOwners(t *testing.T) {
	s := PostChanged(1, 7, 8)
	mustContain(t, s, Post(1), Categories, UserStats(7), UserRecentPosts(7), UserStats(8), UserRecentPosts(8))
	mustNotContain(t, s, CommentsScope(1))
}

func TestPostDeleted(t *testing.T) {
	s := PostDeleted(1, 7)
	mustContain(t, s, Post(1), CommentsScope(1), TopLevelComments(1), PostsListScope, UserStats(7))
}

func TestCommentChanged(t *testing.T) {
	s := CommentChanged(1, 7)
	mustContain(t, s, Post(1), CommentsScope(1), TopLevelComments(1), Trending, UserStats(7),
		PostsListScope, WelcomeRecent, UserRecentPosts(7))
	mustNotContain(t, s, Categories, SystemStats, WelcomeStats)
}

func TestPostViewedLeavesPostEntry(t *testing.T) {
	s := PostViewed(7)
	mustContain(t, s, Trending, UserStats(7), SystemStats, WelcomeStats)
	mustNotContain(t, s, Post(1), PostsListScope)
}

func TestSetsHaveNoDuplicates(t *testing.T) {
	for _, s := range [][]string{PostChanged(1, 7, 7), PostDeleted(1, 7), CommentChanged(1, 7), UserCreated()} {
		seen := map[string]bool{}
		for _, n := range s {
			if seen[n] {
				t.Fatalf("duplicate %q in %v", n, s)
			}
			seen[n] = true
		}
	}
}
