package httpapi

import (
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/etag"
)

// Every post or comment leaves the server with its current token.

type postView struct {
	blog.Post
	ETag etag.Token `json:"etag"`
}

type summaryView struct {
	blog.PostSummary
	ETag etag.Token `json:"etag"`
}

type commentView struct {
	blog.Comment
	ETag etag.Token `json:"etag"`
}

type threadView struct {
	commentView
	Author  blog.Author   `json:"user"`
	Replies []commentView `json:"replies"`
}

type detailView struct {
	Post     postView     `json:"post"`
	Author   blog.Author  `json:"user"`
	Comments []threadView `json:"comments"`
}

func viewPost(p blog.Post) postView { return postView{Post: p, ETag: etag.Of(p)} }

func viewComment(c blog.Comment) commentView { return commentView{Comment: c, ETag: etag.Of(c)} }

func viewComments(cs []blog.Comment) []commentView {
	out := make([]commentView, len(cs))
	for i, c := range cs {
		out[i] = viewComment(c)
	}
	return out
}

func viewSummaries(rows []blog.PostSummary) []summaryView {
	out := make([]summaryView, len(rows))
	for i, r := range rows {
		out[i] = summaryView{PostSummary: r, ETag: etag.Of(r.Post)}
	}
	return out
}

func viewDetail(d blog.PostDetail) detailView {
	threads := make([]threadView, len(d.Comments))
	for i, t := range d.Comments {
		threads[i] = threadView{commentView: viewComment(t.Comment), Author: t.Author, Replies: viewComments(t.Replies)}
	}
	return detailView{Post: viewPost(d.Post), Author: d.Author, Comments: threads}
}

type pageView struct {
	Items    []summaryView `json:"data"`
	Total    int           `json:"total"`
	Page     int           `json:"current_page"`
	PerPage  int           `json:"per_page"`
	LastPage int           `json:"last_page"`
}

func viewPage(p blog.Page[blog.PostSummary]) pageView {
	return pageView{Items: viewSummaries(p.Items), Total: p.Total, Page: p.Page, PerPage: p.PerPage, LastPage: p.LastPage}
}
