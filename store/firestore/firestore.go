// Package firestore stores blog records in Cloud Firestore.
//
// Each Update runs inside client.RunTransaction. Firestore requires every
// read of a transaction to precede its first write, so writes are buffered
// in the tx and applied after fn returns; reads see the buffered writes.
// When two transactions touch the same document Firestore aborts one and
// re-runs fn, which then re-reads the committed state.
package firestore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/zeebo/xxh3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/store"
)

type Config struct {
	ProjectID string `yaml:"project_id"`
	// Prefix is prepended to every collection name, e.g. "blog_".
	Prefix string `yaml:"prefix"`
}

type Store struct {
	client *firestore.Client
	log    blogcas.Logger

	posts, comments, users, emails, counters string
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client. Close does not close it.
func New(client *firestore.Client, cfg Config, log blogcas.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("firestore: client is required")
	}
	if log == nil {
		log = blogcas.NopLogger{}
	}
	log.Info("store_opened", blogcas.Fields{"backend": "firestore", "project": cfg.ProjectID, "prefix": cfg.Prefix})
	return &Store{
		client:   client,
		log:      log,
		posts:    cfg.Prefix + "posts",
		comments: cfg.Prefix + "comments",
		users:    cfg.Prefix + "users",
		emails:   cfg.Prefix + "user_emails",
		counters: cfg.Prefix + "counters",
	}, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(s.newTx(ftx, true))
	}, firestore.ReadOnly)
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		t := s.newTx(ftx, false)
		if err := fn(t); err != nil {
			return err
		}
		return t.flush()
	})
}

var errReadOnly = errors.New("firestore: write in read-only transaction")

type pending struct {
	ref     *firestore.DocumentRef
	data    any
	deleted bool
}

type tx struct {
	s        *Store
	ftx      *firestore.Transaction
	readOnly bool

	writes   map[string]*pending // by document path
	order    []string
	counters map[string]int64
}

func (s *Store) newTx(ftx *firestore.Transaction, readOnly bool) *tx {
	return &tx{
		s:        s,
		ftx:      ftx,
		readOnly: readOnly,
		writes:   make(map[string]*pending),
		counters: make(map[string]int64),
	}
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

func emailID(email string) string {
	sum := xxh3.HashString128(strings.ToLower(strings.TrimSpace(email))).Bytes()
	return hex.EncodeToString(sum[:])
}

func (t *tx) ref(coll, id string) *firestore.DocumentRef {
	return t.s.client.Collection(coll).Doc(id)
}

func (t *tx) put(ref *firestore.DocumentRef, data any, deleted bool) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, ok := t.writes[ref.Path]; !ok {
		t.order = append(t.order, ref.Path)
	}
	t.writes[ref.Path] = &pending{ref: ref, data: data, deleted: deleted}
	return nil
}

func (t *tx) flush() error {
	for kind, next := range t.counters {
		if err := t.ftx.Set(t.ref(t.s.counters, kind), map[string]any{"next": next}); err != nil {
			return err
		}
	}
	for _, path := range t.order {
		w := t.writes[path]
		var err error
		if w.deleted {
			err = t.ftx.Delete(w.ref)
		} else {
			err = t.ftx.Set(w.ref, w.data)
		}
		if err != nil {
			return fmt.Errorf("firestore: write %s: %w", path, err)
		}
	}
	return nil
}

// get decodes the document into dst, honouring buffered writes.
func get[T any](t *tx, ref *firestore.DocumentRef) (T, error) {
	var zero T
	if w, ok := t.writes[ref.Path]; ok {
		if w.deleted {
			return zero, store.ErrNotFound
		}
		return w.data.(T), nil
	}
	snap, err := t.ftx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return zero, store.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("firestore: get %s: %w", ref.Path, err)
	}
	var v T
	if err := snap.DataTo(&v); err != nil {
		return zero, fmt.Errorf("firestore: decode %s: %w", ref.Path, err)
	}
	return v, nil
}

// list runs q and overlays buffered writes on coll. keep filters buffered
// documents the query would not have matched.
func list[T any](t *tx, coll string, q firestore.Query, keep func(T) bool) ([]T, error) {
	docs, err := t.ftx.Documents(q).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore: query %s: %w", coll, err)
	}
	seen := make(map[string]bool, len(docs))
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		seen[d.Ref.Path] = true
		if w, ok := t.writes[d.Ref.Path]; ok {
			if !w.deleted && keep(w.data.(T)) {
				out = append(out, w.data.(T))
			}
			continue
		}
		var v T
		if err := d.DataTo(&v); err != nil {
			return nil, fmt.Errorf("firestore: decode %s: %w", d.Ref.Path, err)
		}
		out = append(out, v)
	}
	prefix := t.s.client.Collection(coll).Path + "/"
	var added []string
	for _, path := range t.order {
		if !seen[path] && strings.HasPrefix(path, prefix) {
			added = append(added, path)
		}
	}
	sort.Strings(added)
	for _, path := range added {
		if w := t.writes[path]; !w.deleted && keep(w.data.(T)) {
			out = append(out, w.data.(T))
		}
	}
	return out, nil
}

func (t *tx) nextID(kind string) (int64, error) {
	cur, ok := t.counters[kind]
	if !ok {
		snap, err := t.ftx.Get(t.ref(t.s.counters, kind))
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return 0, fmt.Errorf("firestore: counter %s: %w", kind, err)
		default:
			v, err := snap.DataAt("next")
			if err != nil {
				return 0, fmt.Errorf("firestore: counter %s: %w", kind, err)
			}
			n, ok := v.(int64)
			if !ok {
				return 0, fmt.Errorf("firestore: counter %s has type %T", kind, v)
			}
			cur = n
		}
	}
	if t.readOnly {
		return 0, errReadOnly
	}
	cur++
	t.counters[kind] = cur
	return cur, nil
}

func all[T any](T) bool { return true }

func (t *tx) Post(id int64) (blog.Post, error) {
	return get[blog.Post](t, t.ref(t.s.posts, docID(id)))
}

func (t *tx) Posts() ([]blog.Post, error) {
	return list(t, t.s.posts, t.s.client.Collection(t.s.posts).Query, all[blog.Post])
}

func (t *tx) PutPost(p *blog.Post) error {
	if p.ID == 0 {
		id, err := t.nextID("post")
		if err != nil {
			return err
		}
		p.ID = id
	}
	return t.put(t.ref(t.s.posts, docID(p.ID)), *p, false)
}

func (t *tx) DeletePost(id int64) error {
	return t.put(t.ref(t.s.posts, docID(id)), nil, true)
}

func (t *tx) Comment(id int64) (blog.Comment, error) {
	return get[blog.Comment](t, t.ref(t.s.comments, docID(id)))
}

func (t *tx) Comments(postID int64) ([]blog.Comment, error) {
	q := t.s.client.Collection(t.s.comments).Query
	keep := all[blog.Comment]
	if postID != 0 {
		q = q.Where("post_id", "==", postID)
		keep = func(c blog.Comment) bool { return c.PostID == postID }
	}
	return list(t, t.s.comments, q, keep)
}

func (t *tx) PutComment(c *blog.Comment) error {
	if c.ID == 0 {
		id, err := t.nextID("comment")
		if err != nil {
			return err
		}
		c.ID = id
	}
	return t.put(t.ref(t.s.comments, docID(c.ID)), *c, false)
}

func (t *tx) DeleteComment(id int64) error {
	return t.put(t.ref(t.s.comments, docID(id)), nil, true)
}

func (t *tx) User(id int64) (blog.User, error) {
	return get[blog.User](t, t.ref(t.s.users, docID(id)))
}

func (t *tx) Users() ([]blog.User, error) {
	return list(t, t.s.users, t.s.client.Collection(t.s.users).Query, all[blog.User])
}

type emailOwner struct {
	ID int64 `firestore:"id"`
}

func (t *tx) PutUser(u *blog.User) error {
	eref := t.ref(t.s.emails, emailID(u.Email))
	owner, err := get[emailOwner](t, eref)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	case owner.ID != u.ID:
		return &store.ConstraintError{Field: "email", Value: u.Email}
	}

	if u.ID == 0 {
		id, err := t.nextID("user")
		if err != nil {
			return err
		}
		u.ID = id
	} else if prev, err := t.User(u.ID); err == nil && !strings.EqualFold(prev.Email, u.Email) {
		if err := t.put(t.ref(t.s.emails, emailID(prev.Email)), nil, true); err != nil {
			return err
		}
	}
	if err := t.put(eref, emailOwner{ID: u.ID}, false); err != nil {
		return err
	}
	return t.put(t.ref(t.s.users, docID(u.ID)), *u, false)
}
