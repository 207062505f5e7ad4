package ui

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

type ButtonVariant string

const (
	ButtonContained ButtonVariant = "contained"
	ButtonOutlined  ButtonVariant = "outlined"
	ButtonText      ButtonVariant = "text"
)

type ButtonColor string

const (
	ColorPrimary   ButtonColor = "primary"
	ColorSecondary ButtonColor = "secondary"
	ColorDarkGrey  ButtonColor = "darkGrey"
)

type ButtonSize string

const (
	SizeSmall  ButtonSize = "small"
	SizeMedium ButtonSize = "medium"
	SizeLarge  ButtonSize = "large"
)

const buttonBase = "inline-flex items-center justify-center rounded-md text-sm font-medium transition-colors focus-visible:outline-none disabled:pointer-events-none disabled:opacity-50 font-semibold font-montserrat"

var buttonVariants = map[ButtonVariant]string{
	ButtonContained: "text-white",
	ButtonOutlined:  "bg-white border border-[var(--cva-color)] text-dark-grey hover:bg-[#F5F5F5]",
	ButtonText:      "bg-transparent border-none",
}

var buttonColors = map[ButtonColor]string{
	ColorPrimary:   "bg-blue-600 text-blue-400",
	ColorSecondary: "bg-teal-400 text-white hover:bg-teal-600",
	ColorDarkGrey:  "bg-white text-gray-500",
}

var buttonSizes = map[ButtonSize]string{
	SizeSmall:  "h-10 px-3",
	SizeMedium: "h-11 px-4",
	SizeLarge:  "h-12 px-8",
}

type compoundKey struct {
	variant ButtonVariant
	color   ButtonColor
}

// A compound class set replaces the plain color classes for its pair.
var buttonCompounds = map[compoundKey]string{
	{ButtonContained, ColorPrimary}:   "bg-blue-600 text-white hover:bg-blue-700",
	{ButtonContained, ColorSecondary}: "bg-teal text-white hover:bg-teal-600",
	{ButtonOutlined, ColorPrimary}:    "border-2 border-blue-400 bg-white text-blue-400 hover:bg-blue-50",
	{ButtonOutlined, ColorSecondary}:  "border-2 border-teal-400 bg-white text-teal-400 hover:bg-teal-50",
	{ButtonOutlined, ColorDarkGrey}:   "border-2 border-gray-400 bg-white text-gray-600 hover:gray-50",
	{ButtonText, ColorPrimary}:        "bg-transparent text-blue-400 hover:bg-blue-50",
	{ButtonText, ColorSecondary}:      "bg-transparent text-teal-400 hover:bg-teal-50",
}

type ButtonProps struct {
	Variant  ButtonVariant
	Color    ButtonColor
	Size     ButtonSize
	Type     string
	Class    string
	Name     string
	Value    string
	Disabled bool
}

// ButtonClasses resolves the class list for props, defaulting to a medium
// contained primary button.
func ButtonClasses(p ButtonProps) string {
	variant, color, size := p.Variant, p.Color, p.Size
	if _, ok := buttonVariants[variant]; !ok {
		variant = ButtonContained
	}
	if _, ok := buttonColors[color]; !ok {
		color = ColorPrimary
	}
	if _, ok := buttonSizes[size]; !ok {
		size = SizeMedium
	}

	colorClass := buttonColors[color]
	if compound, ok := buttonCompounds[compoundKey{variant, color}]; ok {
		colorClass = compound
	}
	return classes(buttonBase, buttonVariants[variant], colorClass, buttonSizes[size], p.Class)
}

func Button(p ButtonProps, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		typ := p.Type
		if typ == "" {
			typ = "button"
		}
		h := &htmlWriter{w: w}
		h.raw("<button")
		h.attr("type", typ)
		h.attr("class", ButtonClasses(p))
		h.attr("name", p.Name)
		h.attr("value", p.Value)
		h.flag("disabled", p.Disabled)
		h.raw(">")
		for _, c := range children {
			h.render(ctx, c)
		}
		h.raw("</button>")
		return h.err
	})
}
