package service

import (
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/unkn0wn-root/blogcas/blog"
)

const (
	titleMin, titleMax     = 3, 255
	contentMin, contentMax = 10, 65535
	categoryMax            = 100
	commentMin, commentMax = 3, 1000
	nameMax                = 255
)

func checkLen(v *validator, field, s string, lo, hi int) {
	n := utf8.RuneCountInString(s)
	switch {
	case n < lo:
		v.add(field, "must be at least "+strconv.Itoa(lo)+" characters")
	case n > hi:
		v.add(field, "may not be greater than "+strconv.Itoa(hi)+" characters")
	}
}

func checkTitle(v *validator, s string)   { checkLen(v, "title", s, titleMin, titleMax) }
func checkContent(v *validator, s string) { checkLen(v, "content", s, contentMin, contentMax) }

func checkStatus(v *validator, s blog.Status) {
	if !s.Editable() {
		v.add("status", "must be one of draft, published, archived")
	}
}

func checkCategory(v *validator, s string) {
	if utf8.RuneCountInString(s) > categoryMax {
		v.add("category", "may not be greater than "+strconv.Itoa(categoryMax)+" characters")
	}
}

func checkPublishedAt(v *validator, at *time.Time, now time.Time) {
	if at != nil && at.Before(now.Truncate(time.Second)) {
		v.add("published_at", "must be a date after or equal to now")
	}
}

func checkComment(v *validator, s string) { checkLen(v, "content", s, commentMin, commentMax) }

func checkUser(v *validator, name, email string) {
	if strings.TrimSpace(name) == "" {
		v.add("name", "is required")
	} else if utf8.RuneCountInString(name) > nameMax {
		v.add("name", "may not be greater than "+strconv.Itoa(nameMax)+" characters")
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != strings.TrimSpace(email) {
		v.add("email", "must be a valid email address")
	}
}
