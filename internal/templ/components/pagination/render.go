package pagination

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
)

// ItemRenderer draws a single pagination item. Lists choose anchors, buttons,
// or their own element by supplying one.
type ItemRenderer interface {
	RenderItem(item Item) templ.Component
}

// ItemRendererFunc adapts a function to ItemRenderer.
type ItemRendererFunc func(item Item) templ.Component

func (f ItemRendererFunc) RenderItem(item Item) templ.Component {
	return f(item)
}

const (
	itemClass     = "relative inline-flex items-center px-3 py-2 text-sm font-medium text-gray-700 ring-1 ring-inset ring-gray-300 hover:bg-gray-50"
	activeClass   = "z-10 bg-blue-600 text-white ring-blue-600 hover:bg-blue-600"
	disabledClass = "text-gray-300 cursor-not-allowed hover:bg-transparent"
	limitClass    = "rounded-md ring-0 px-2 py-1"
	navClass      = "flex items-center justify-between gap-4 border-t border-gray-200 px-4 py-3"
)

// LinkRenderer draws items as anchors, optionally wired for htmx.
type LinkRenderer struct {
	TargetID string
	UseHtmx  bool
	PushURL  bool
	Class    string
}

func (r LinkRenderer) RenderItem(item Item) templ.Component {
	return linkItem(r, item)
}

// ButtonRenderer draws items as buttons that fetch the page through htmx.
type ButtonRenderer struct {
	TargetID string
	PushURL  bool
	Class    string
}

func (r ButtonRenderer) RenderItem(item Item) templ.Component {
	return buttonItem(r, item)
}

func itemClasses(extra string, item Item) string {
	switch {
	case item.Active:
		return twmerge.Merge(itemClass, activeClass, extra)
	case item.Disabled:
		return twmerge.Merge(itemClass, disabledClass, extra)
	default:
		return twmerge.Merge(itemClass, extra)
	}
}

func limitClasses(opt LimitOption) string {
	return itemClasses(limitClass, Item{Kind: KindPage, Active: opt.Selected})
}

func navClasses(extra string) string {
	return twmerge.Merge(navClass, extra)
}

// hxGet returns hx-get plus the target and push attributes, in that order.
func hxGet(href, targetID string, pushURL bool) templ.OrderedAttributes {
	attrs := templ.OrderedAttributes{{Key: "hx-get", Value: string(templ.URL(href))}}
	if targetID != "" {
		attrs = append(attrs,
			templ.KeyValue[string, any]{Key: "hx-target", Value: "#" + targetID},
			templ.KeyValue[string, any]{Key: "hx-swap", Value: "outerHTML"},
		)
	}
	if pushURL {
		attrs = append(attrs, templ.KeyValue[string, any]{Key: "hx-push-url", Value: "true"})
	}
	return attrs
}

// limitRenderer lets the page-size links follow the page links' htmx wiring.
// Other renderers get plain anchors.
func limitRenderer(r ItemRenderer) LinkRenderer {
	if lr, ok := r.(LinkRenderer); ok {
		return lr
	}
	return LinkRenderer{}
}
