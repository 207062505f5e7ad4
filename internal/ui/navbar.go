package ui

import (
	"context"
	"io"

	"identity-sync-backend/internal/domain"

	"github.com/a-h/templ"
)

const csrfField = "csrf_token"

func AppNavbar(user *domain.User, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		initial := ""
		if user != nil {
			initial = user.Initial()
		}
		h := &htmlWriter{w: w}
		h.raw(`<nav class="sticky left-0 right-0 top-0 z-50 flex h-24 w-full flex-row items-center justify-between bg-white px-12 py-2 shadow-[4px_4px_10px_0px_rgba(0,0,0,0.10)]"><div class="ml-auto">`)
		h.render(ctx, ProfileDropdown(initial, csrfToken))
		h.raw(`</div></nav>`)
		return h.err
	})
}

// ProfileDropdown is a details/summary menu with a settings link and a
// sign-out form posting to /signout.
func ProfileDropdown(initial, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<details class="relative ml-3"><summary class="relative flex h-[60px] w-[60px] cursor-pointer list-none items-center justify-center rounded-full bg-[#D9D9D9] text-center text-sm"><p class="font-montserrat font-semibold">`)
		h.text(initial)
		h.raw(`</p></summary><div class="absolute right-0 z-10 mt-2 w-48 origin-top-right rounded-md border-none bg-white py-1 shadow-lg">`)
		h.raw(`<a href="/settings" class="block cursor-pointer px-4 py-2 text-sm">Settings</a>`)
		h.raw(`<form method="post" action="/signout">`)
		h.render(ctx, HiddenInput(csrfField, csrfToken))
		h.raw(`<button type="submit" class="block w-full cursor-pointer px-4 py-2 text-left text-sm">Sign Out</button></form>`)
		h.raw(`</div></details>`)
		return h.err
	})
}
