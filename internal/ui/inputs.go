package ui

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

type TextInputProps struct {
	ID           string
	Name         string
	Type         string
	Value        string
	Placeholder  string
	AutoComplete string
	InputMode    string
	MaxLength    int
	Class        string
	Error        string
	Required     bool
	StartIcon    templ.Component
}

// TextInput renders a ringed input; the ring turns red when Error is set.
func TextInput(p TextInputProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		typ := p.Type
		if typ == "" {
			typ = "text"
		}
		padLeft, ring, focus := "pl-5", "ring-gray-300", "focus:ring-blue-600"
		if p.StartIcon != nil {
			padLeft = "pl-14"
		}
		if p.Error != "" {
			ring, focus = "ring-red-600", "focus:ring-red-600"
		}

		h := &htmlWriter{w: w}
		h.raw(`<div class="sm:col-span-3"><div class="relative">`)
		if p.StartIcon != nil {
			h.raw(`<div class="pointer-events-none absolute inset-y-0 left-0 flex items-center pl-5">`)
			h.render(ctx, p.StartIcon)
			h.raw(`</div>`)
		}
		h.raw("<input")
		h.attr("id", p.ID)
		h.attr("name", p.Name)
		h.attr("type", typ)
		h.attr("value", p.Value)
		h.attr("placeholder", p.Placeholder)
		h.attr("autocomplete", p.AutoComplete)
		h.attr("inputmode", p.InputMode)
		if p.MaxLength > 0 {
			h.attr("maxlength", strconv.Itoa(p.MaxLength))
		}
		h.attr("autocapitalize", "none")
		h.attr("autocorrect", "off")
		if p.Error != "" {
			h.attr("aria-invalid", "true")
		}
		h.flag("required", p.Required)
		h.attr("class", classes(
			"block h-10 w-full rounded-md border-0 py-2.5 pr-5",
			padLeft,
			"ring-1 ring-inset",
			ring,
			"placeholder:text-gray-500 focus:outline-none focus:ring-2 focus:ring-inset",
			focus,
			p.Class,
		))
		h.raw(`></div></div>`)
		return h.err
	})
}

type LabelProps struct {
	For      string
	Class    string
	Required bool
}

func Label(p LabelProps, text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		required := ""
		if p.Required {
			required = "after:ml-1 after:inline after:align-middle after:content-['*']"
		}
		h := &htmlWriter{w: w}
		h.raw("<label")
		h.attr("for", p.For)
		h.attr("class", classes("block text-base font-normal leading-6", required, p.Class))
		h.raw(">")
		h.text(text)
		h.raw("</label>")
		return h.err
	})
}

// FormHelperText shows err when set, otherwise hint. With neither it renders nothing.
func FormHelperText(err, hint string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		body := hint
		if err != "" {
			body = err
		}
		if body == "" {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw(`<p class="text-red pl-1 pt-1 text-xs">`)
		h.text(body)
		h.raw("</p>")
		return h.err
	})
}

// CircularProgress is a spinning loader; size defaults to 20px.
func CircularProgress(size int, class string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if size <= 0 {
			size = 20
		}
		px := strconv.Itoa(size)
		h := &htmlWriter{w: w}
		h.raw(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" role="status"`)
		h.attr("width", px)
		h.attr("height", px)
		h.attr("class", classes("animate-spin stroke-blue-400", class))
		h.raw(`><path d="M21 12a9 9 0 1 1-6.219-8.56"></path></svg>`)
		return h.err
	})
}

func GoogleIcon() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20" viewBox="0 0 48 48" aria-hidden="true">`+
			`<path fill="#FFC107" d="M43.6 20.5H42V20H24v8h11.3C33.7 32.7 29.3 36 24 36c-6.6 0-12-5.4-12-12s5.4-12 12-12c3.1 0 5.8 1.2 7.9 3.1l5.7-5.7C34 6.1 29.3 4 24 4 12.9 4 4 12.9 4 24s8.9 20 20 20 20-8.9 20-20c0-1.3-.1-2.4-.4-3.5z"/>`+
			`<path fill="#FF3D00" d="M6.3 14.7l6.6 4.8C14.7 15.1 19 12 24 12c3.1 0 5.8 1.2 7.9 3.1l5.7-5.7C34 6.1 29.3 4 24 4 16.3 4 9.7 8.3 6.3 14.7z"/>`+
			`<path fill="#4CAF50" d="M24 44c5.2 0 9.9-2 13.4-5.2l-6.2-5.2C29.2 35.1 26.7 36 24 36c-5.2 0-9.6-3.3-11.3-8l-6.5 5C9.5 39.6 16.2 44 24 44z"/>`+
			`<path fill="#1976D2" d="M43.6 20.5H42V20H24v8h11.3c-.8 2.2-2.2 4.2-4.1 5.6l6.2 5.2C37 39.2 44 34 44 24c0-1.3-.1-2.4-.4-3.5z"/>`+
			`</svg>`)
		return err
	})
}

// HiddenInput carries form state such as the CSRF token.
func HiddenInput(name, value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<input type="hidden"`)
		h.attr("name", name)
		h.attr("value", value)
		h.raw(">")
		return h.err
	})
}
