package ui

import (
	"context"
	"io"

	"identity-sync-backend/internal/domain"

	"github.com/a-h/templ"
)

const appName = "Identity Sync"

func document(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		if title != "" {
			h.text(title + " | ")
		}
		h.text(appName)
		h.raw(`</title><link rel="stylesheet" href="/static/app.css"></head><body class="bg-white">`)
		h.render(ctx, body)
		h.raw(`</body></html>`)
		return h.err
	})
}

// AuthLayout centers content on an otherwise empty page.
func AuthLayout(title string, content templ.Component) templ.Component {
	return document(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="flex h-screen items-center justify-center px-8"><div class="flex w-full max-w-xl flex-col items-center">`)
		h.render(ctx, content)
		h.raw(`</div></div>`)
		return h.err
	}))
}

// DashboardLayout puts the navbar above a centered container.
func DashboardLayout(title string, user *domain.User, csrfToken string, content templ.Component) templ.Component {
	return document(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.render(ctx, AppNavbar(user, csrfToken))
		h.raw(`<div class="flex w-full justify-center px-8 py-12"><div class="container min-h-[calc(100vh_-_96px)]">`)
		h.render(ctx, content)
		h.raw(`</div></div>`)
		return h.err
	}))
}
