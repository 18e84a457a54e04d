// Package pebble stores blog records in a Pebble LSM.
//
// Update transactions hold a process-wide write lock around an indexed batch
// committed with pebble.Sync, so a read-validate-write inside one Update is
// serializable against every other Update on the same DB.
package pebble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/codec"
	"github.com/unkn0wn-root/blogcas/store"
)

const (
	prefixPost    = "post:"
	prefixComment = "comment:"
	prefixUser    = "user:"
	prefixEmail   = "user_email:"
	prefixSeq     = "seq:"
)

type Options struct {
	// Path is the data directory. Empty keeps everything in memory.
	Path string
	// Codec names the record encoding; see codec.ByName.
	Codec  string
	Logger blogcas.Logger
}

type Store struct {
	db  *pebble.DB
	mu  sync.Mutex
	log blogcas.Logger

	posts    codec.Codec[blog.Post]
	comments codec.Codec[blog.Comment]
	users    codec.Codec[blog.User]
}

var _ store.Store = (*Store)(nil)

func Open(opts Options) (*Store, error) {
	posts, err := codec.ByName[blog.Post](opts.Codec)
	if err != nil {
		return nil, err
	}
	comments, err := codec.ByName[blog.Comment](opts.Codec)
	if err != nil {
		return nil, err
	}
	users, err := codec.ByName[blog.User](opts.Codec)
	if err != nil {
		return nil, err
	}

	po := &pebble.Options{}
	dir := opts.Path
	if dir == "" {
		po.FS = vfs.NewMem()
		dir = "blogcas"
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %q: %w", opts.Path, err)
	}

	s := &Store{
		db:       db,
		log:      opts.Logger,
		posts:    posts,
		comments: comments,
		users:    users,
	}
	if s.log == nil {
		s.log = blogcas.NopLogger{}
	}
	s.log.Info("store_opened", blogcas.Fields{"backend": "pebble", "path": opts.Path, "codec": opts.Codec})
	return s, nil
}

// OpenMemory opens an in-memory store.
func OpenMemory() (*Store, error) { return Open(Options{}) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()
	return fn(&tx{s: s, r: snap})
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewIndexedBatch()
	defer b.Close()
	if err := fn(&tx{s: s, r: b, w: b}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble: commit: %w", err)
	}
	return nil
}

// reader is satisfied by *pebble.Snapshot and an indexed *pebble.Batch.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

var errReadOnly = errors.New("pebble: write in read-only transaction")

type tx struct {
	s *Store
	r reader
	w *pebble.Batch // nil in View
}

func key(prefix string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

func (t *tx) get(k []byte) ([]byte, error) {
	v, closer, err := t.r.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble: get %s: %w", k, err)
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (t *tx) scan(prefix string, each func(v []byte) error) error {
	it, err := t.r.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix[:len(prefix)-1] + ";"), // ':'+1
	})
	if err != nil {
		return fmt.Errorf("pebble: iter %s: %w", prefix, err)
	}
	for it.First(); it.Valid(); it.Next() {
		if err := each(it.Value()); err != nil {
			it.Close()
			return err
		}
	}
	if err := it.Error(); err != nil {
		it.Close()
		return fmt.Errorf("pebble: iter %s: %w", prefix, err)
	}
	return it.Close()
}

func (t *tx) set(k, v []byte) error {
	if t.w == nil {
		return errReadOnly
	}
	return t.w.Set(k, v, nil)
}

func (t *tx) del(k []byte) error {
	if t.w == nil {
		return errReadOnly
	}
	return t.w.Delete(k, nil)
}

// nextID bumps the sequence for kind inside the batch.
func (t *tx) nextID(kind string) (int64, error) {
	k := []byte(prefixSeq + kind)
	var cur uint64
	v, err := t.get(k)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return 0, err
	case len(v) != 8:
		return 0, fmt.Errorf("pebble: corrupt sequence %s", kind)
	default:
		cur = binary.BigEndian.Uint64(v)
	}
	cur++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], cur)
	if err := t.set(k, buf[:]); err != nil {
		return 0, err
	}
	return int64(cur), nil
}

func (t *tx) Post(id int64) (blog.Post, error) {
	v, err := t.get(key(prefixPost, id))
	if err != nil {
		return blog.Post{}, err
	}
	return t.s.posts.Decode(v)
}

func (t *tx) Posts() ([]blog.Post, error) {
	var out []blog.Post
	err := t.scan(prefixPost, func(v []byte) error {
		p, err := t.s.posts.Decode(v)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (t *tx) PutPost(p *blog.Post) error {
	if p.ID == 0 {
		id, err := t.nextID("post")
		if err != nil {
			return err
		}
		p.ID = id
	}
	v, err := t.s.posts.Encode(*p)
	if err != nil {
		return err
	}
	return t.set(key(prefixPost, p.ID), v)
}

func (t *tx) DeletePost(id int64) error { return t.del(key(prefixPost, id)) }

func (t *tx) Comment(id int64) (blog.Comment, error) {
	v, err := t.get(key(prefixComment, id))
	if err != nil {
		return blog.Comment{}, err
	}
	return t.s.comments.Decode(v)
}

func (t *tx) Comments(postID int64) ([]blog.Comment, error) {
	var out []blog.Comment
	err := t.scan(prefixComment, func(v []byte) error {
		c, err := t.s.comments.Decode(v)
		if err != nil {
			return err
		}
		if postID == 0 || c.PostID == postID {
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

func (t *tx) PutComment(c *blog.Comment) error {
	if c.ID == 0 {
		id, err := t.nextID("comment")
		if err != nil {
			return err
		}
		c.ID = id
	}
	v, err := t.s.comments.Encode(*c)
	if err != nil {
		return err
	}
	return t.set(key(prefixComment, c.ID), v)
}

func (t *tx) DeleteComment(id int64) error { return t.del(key(prefixComment, id)) }

func (t *tx) User(id int64) (blog.User, error) {
	v, err := t.get(key(prefixUser, id))
	if err != nil {
		return blog.User{}, err
	}
	return t.s.users.Decode(v)
}

func (t *tx) Users() ([]blog.User, error) {
	var out []blog.User
	err := t.scan(prefixUser, func(v []byte) error {
		u, err := t.s.users.Decode(v)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

func emailKey(email string) []byte {
	return []byte(prefixEmail + strings.ToLower(strings.TrimSpace(email)))
}

func (t *tx) PutUser(u *blog.User) error {
	ek := emailKey(u.Email)
	owner, err := t.get(ek)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	case len(owner) == 8 && int64(binary.BigEndian.Uint64(owner)) != u.ID:
		return &store.ConstraintError{Field: "email", Value: u.Email}
	}

	if u.ID == 0 {
		id, err := t.nextID("user")
		if err != nil {
			return err
		}
		u.ID = id
	} else if prev, err := t.User(u.ID); err == nil && !strings.EqualFold(prev.Email, u.Email) {
		if err := t.del(emailKey(prev.Email)); err != nil {
			return err
		}
	}

	v, err := t.s.users.Encode(*u)
	if err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(u.ID))
	if err := t.set(ek, buf[:]); err != nil {
		return err
	}
	return t.set(key(prefixUser, u.ID), v)
}
