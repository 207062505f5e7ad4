package ui

import (
	"context"
	"io"

	"identity-sync-backend/internal/domain"

	"github.com/a-h/templ"
)

const (
	SignupStepCredentials = "credentials"
	SignupStepVerify      = "verify"
	SignupStepRestart     = "restart"
)

type SignupView struct {
	CSRFToken string
	State     domain.SignupState
	Email     string
	// Errors maps form field names to messages.
	Errors    map[string]string
	FormError string
}

type SignInView struct {
	CSRFToken string
	Email     string
	Errors    map[string]string
	FormError string
}

func field(ctx context.Context, h *htmlWriter, label LabelProps, text string, input TextInputProps) {
	h.raw("<div>")
	h.render(ctx, Label(label, text))
	h.render(ctx, TextInput(input))
	h.render(ctx, FormHelperText(input.Error, ""))
	h.raw("</div>")
}

func formError(h *htmlWriter, msg string) {
	if msg == "" {
		return
	}
	h.raw(`<p class="mb-6 rounded-md bg-red-50 px-4 py-3 text-sm text-red-700" role="alert">`)
	h.text(msg)
	h.raw("</p>")
}

func divider(h *htmlWriter) {
	h.raw(`<div class="mb-6 flex w-full items-center justify-center"><div class="flex w-3/5 items-center">` +
		`<div class="border-grey w-2/5 flex-grow border-t"></div>` +
		`<span class="text-dark-grey mx-4 w-1/5 flex-shrink text-center font-semibold">or</span>` +
		`<div class="border-grey w-2/5 flex-grow border-t"></div></div></div>`)
}

func googleButton(ctx context.Context, h *htmlWriter, label string) {
	h.raw(`<form method="get" action="/signup/google">`)
	h.render(ctx, Button(ButtonProps{Type: "submit", Variant: ButtonOutlined, Color: ColorDarkGrey, Size: SizeLarge, Class: "w-64 gap-2"}, GoogleIcon(), Text(label)))
	h.raw(`</form>`)
}

// SignupPage renders the phase matching v.State.
func SignupPage(v SignupView) templ.Component {
	return AuthLayout("Sign up", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1 class="font-montserrat mb-8 text-3xl font-semibold">Create your account</h1>`)
		formError(h, v.FormError)

		switch v.State {
		case domain.SignupAwaitingVerification:
			h.raw(`<form class="mb-6 flex w-3/5 flex-col" method="post" action="/signup" id="verify-form">`)
			h.render(ctx, HiddenInput(csrfField, v.CSRFToken))
			h.render(ctx, HiddenInput("step", SignupStepVerify))
			h.raw(`<p class="mb-4 text-sm">We sent a 6-digit code to <strong>`)
			h.text(v.Email)
			h.raw(`</strong>.</p><div class="mb-6 flex flex-col gap-6">`)
			field(ctx, h, LabelProps{For: "code-input", Class: "font-montserrat mb-2.5 font-semibold", Required: true}, "Verify your email", TextInputProps{
				ID: "code-input", Name: "code", InputMode: "numeric", MaxLength: 6, AutoComplete: "one-time-code",
				Placeholder: "Enter verification code", Class: "py-6 text-base placeholder:text-base", Error: v.Errors["code"], Required: true,
			})
			h.raw(`</div>`)
			h.render(ctx, Button(ButtonProps{Type: "submit", Size: SizeLarge, Class: "text-md gap-2"}, Text("Verify")))
			h.raw(`</form>`)
			h.raw(`<form method="post" action="/signup" class="mb-6">`)
			h.render(ctx, HiddenInput(csrfField, v.CSRFToken))
			h.render(ctx, HiddenInput("step", SignupStepRestart))
			h.render(ctx, Button(ButtonProps{Type: "submit", Variant: ButtonText, Size: SizeSmall}, Text("Use a different email")))
			h.raw(`</form>`)
			h.raw(`<a href="/signin" class="text-blue-600">Back to signin</a>`)

		case domain.SignupComplete:
			h.raw(`<p class="mb-6 text-base">Your account is ready.</p><a href="/" class="text-blue-600">Continue</a>`)

		default:
			h.raw(`<form class="mb-6 flex w-3/5 flex-col" method="post" action="/signup" id="register-form">`)
			h.render(ctx, HiddenInput(csrfField, v.CSRFToken))
			h.render(ctx, HiddenInput("step", SignupStepCredentials))
			h.raw(`<div class="mb-6 flex flex-col gap-6">`)
			field(ctx, h, LabelProps{For: "email-input", Class: "mb-1.5", Required: true}, "Email", TextInputProps{
				ID: "email-input", Name: "email", Type: "email", Value: v.Email, AutoComplete: "email",
				Placeholder: "Enter email address", Class: "py-6 text-base placeholder:text-base", Error: v.Errors["email"],
			})
			field(ctx, h, LabelProps{For: "password-input", Class: "mb-1.5", Required: true}, "Password", TextInputProps{
				ID: "password-input", Name: "password", Type: "password", AutoComplete: "new-password",
				Placeholder: "Enter password", Class: "py-6 placeholder:text-base", Error: v.Errors["password"],
			})
			field(ctx, h, LabelProps{For: "confirm-password-input", Class: "mb-1.5", Required: true}, "Confirm Password", TextInputProps{
				ID: "confirm-password-input", Name: "confirmPassword", Type: "password", AutoComplete: "new-password",
				Placeholder: "Confirm password", Class: "py-6 placeholder:text-base", Error: v.Errors["confirmPassword"],
			})
			h.raw(`</div>`)
			h.render(ctx, Button(ButtonProps{Type: "submit", Size: SizeLarge, Class: "text-md gap-2"}, Text("Sign up")))
			h.raw(`</form>`)
			h.raw(`<p class="mb-6 text-sm">Already have an account? <a href="/signin" class="text-blue-600">Sign in</a></p>`)
			divider(h)
			googleButton(ctx, h, "Sign up with Google")
		}
		return h.err
	}))
}

func SignInPage(v SignInView) templ.Component {
	return AuthLayout("Sign in", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1 class="font-montserrat mb-8 text-3xl font-semibold">Sign in</h1>`)
		formError(h, v.FormError)
		h.raw(`<form class="mb-6 flex w-3/5 flex-col" method="post" action="/signin" id="signin-form">`)
		h.render(ctx, HiddenInput(csrfField, v.CSRFToken))
		h.raw(`<div class="mb-6 flex flex-col gap-6">`)
		field(ctx, h, LabelProps{For: "email-input", Class: "mb-1.5", Required: true}, "Email", TextInputProps{
			ID: "email-input", Name: "email", Type: "email", Value: v.Email, AutoComplete: "email",
			Placeholder: "Enter email address", Class: "py-6 text-base placeholder:text-base", Error: v.Errors["email"],
		})
		field(ctx, h, LabelProps{For: "password-input", Class: "mb-1.5", Required: true}, "Password", TextInputProps{
			ID: "password-input", Name: "password", Type: "password", AutoComplete: "current-password",
			Placeholder: "Enter password", Class: "py-6 placeholder:text-base", Error: v.Errors["password"],
		})
		h.raw(`</div>`)
		h.render(ctx, Button(ButtonProps{Type: "submit", Size: SizeLarge, Class: "text-md gap-2"}, Text("Sign in")))
		h.raw(`</form>`)
		h.raw(`<p class="mb-6 text-sm">Don't have an account? <a href="/signup" class="text-blue-600">Sign up</a></p>`)
		divider(h)
		googleButton(ctx, h, "Sign in with Google")
		return h.err
	}))
}

func displayName(u *domain.User) string {
	if u == nil {
		return ""
	}
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	return u.Email
}

func HomePage(user *domain.User, csrfToken string) templ.Component {
	return DashboardLayout("Home", user, csrfToken, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1 class="font-montserrat text-3xl font-semibold">`)
		if name := displayName(user); name != "" {
			h.text("Welcome, " + name)
		} else {
			h.text("Welcome")
		}
		h.raw(`</h1>`)
		if user == nil {
			h.raw(`<p class="mt-4 text-sm text-gray-500">We could not load your profile. Try again in a moment.</p>`)
		}
		return h.err
	}))
}

func SettingsPage(user *domain.User, csrfToken string) templ.Component {
	return DashboardLayout("Settings", user, csrfToken, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1 class="font-montserrat mb-8 text-3xl font-semibold">Settings</h1>`)
		if user == nil {
			h.raw(`<p class="text-sm text-gray-500">Profile unavailable.</p>`)
			return h.err
		}
		row := func(label, value string) {
			h.raw(`<div class="flex gap-4 py-2"><dt class="w-40 font-semibold">`)
			h.text(label)
			h.raw(`</dt><dd>`)
			h.text(value)
			h.raw(`</dd></div>`)
		}
		deref := func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		}
		h.raw(`<dl class="divide-y">`)
		row("Email", user.Email)
		row("First name", deref(user.FirstName))
		row("Last name", deref(user.LastName))
		row("Role", string(user.Role))
		row("Member since", user.CreatedAt.Format("January 2, 2006"))
		h.raw(`</dl>`)
		return h.err
	}))
}
