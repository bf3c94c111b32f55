package runtime

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOM is a document proxy over the app's markup. Elements are goquery
// selections wrapped in goja objects; the same node always maps to the same
// object so identity comparisons in app code hold.
type DOM struct {
	vm  *goja.Runtime
	doc *goquery.Document

	document     *goja.Object
	windowTarget *goja.Object

	proxies   map[*html.Node]*goja.Object
	nodes     map[*goja.Object]*html.Node
	listeners []listener
}

type listener struct {
	target *goja.Object
	event  string
	fn     goja.Callable
}

// NewDOM parses markup into a document and builds its script-facing proxy
func NewDOM(vm *goja.Runtime, markup string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse app markup: %w", err)
	}

	d := &DOM{
		vm:           vm,
		doc:          doc,
		windowTarget: vm.GlobalObject(),
		proxies:      make(map[*html.Node]*goja.Object),
		nodes:        make(map[*goja.Object]*html.Node),
	}
	d.document = d.buildDocument()
	return d, nil
}

// Find runs a CSS selector against the current document state
func (d *DOM) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

func (d *DOM) buildDocument() *goja.Object {
	vm := d.vm
	document := vm.NewObject()

	_ = document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return d.first(d.byID(call.Argument(0).String()))
	})
	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return d.first(d.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return d.all(d.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		classes := strings.Fields(call.Argument(0).String())
		if len(classes) == 0 {
			return vm.NewArray()
		}
		return d.all(d.doc.Find("." + strings.Join(classes, ".")))
	})
	_ = document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return d.all(d.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		node := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
		return d.wrap(node)
	})
	_ = document.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		node := &html.Node{Type: html.TextNode, Data: call.Argument(0).String()}
		return d.wrap(node)
	})
	_ = document.Set("addEventListener", d.listenerFunc(document))
	_ = document.Set("removeEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = document.Set("readyState", "loading")
	_ = document.Set("title", d.doc.Find("title").First().Text())

	if body := d.doc.Find("body").First(); body.Length() > 0 {
		_ = document.Set("body", d.wrap(body.Get(0)))
	}
	if root := d.doc.Find("html").First(); root.Length() > 0 {
		_ = document.Set("documentElement", d.wrap(root.Get(0)))
	}
	if head := d.doc.Find("head").First(); head.Length() > 0 {
		_ = document.Set("head", d.wrap(head.Get(0)))
	}

	return document
}

func (d *DOM) byID(id string) *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	})
}

func (d *DOM) first(sel *goquery.Selection) goja.Value {
	if sel.Length() == 0 {
		return goja.Null()
	}
	return d.wrap(sel.Get(0))
}

func (d *DOM) all(sel *goquery.Selection) goja.Value {
	items := make([]interface{}, 0, sel.Length())
	for _, n := range sel.Nodes {
		items = append(items, d.wrap(n))
	}
	return d.vm.NewArray(items...)
}

func (d *DOM) selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

func (d *DOM) nodeOf(v goja.Value) *html.Node {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return d.nodes[obj]
}

// wrap returns the proxy for n, creating it on first use
func (d *DOM) wrap(n *html.Node) *goja.Object {
	if obj, ok := d.proxies[n]; ok {
		return obj
	}

	vm := d.vm
	el := vm.NewObject()
	d.proxies[n] = el
	d.nodes[el] = n

	sel := func() *goquery.Selection { return d.selection(n) }
	undefined := func(goja.FunctionCall) goja.Value { return goja.Undefined() }

	accessor := func(name string, get func() interface{}, set func(goja.Value)) {
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(get()) })
		var setter goja.Value
		if set != nil {
			setter = vm.ToValue(func(call goja.FunctionCall) goja.Value {
				set(call.Argument(0))
				return goja.Undefined()
			})
		}
		_ = el.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
	}
	attr := func(name string) func() interface{} {
		return func() interface{} {
			v, _ := sel().Attr(name)
			return v
		}
	}
	setAttr := func(name string) func(goja.Value) {
		return func(v goja.Value) { sel().SetAttr(name, v.String()) }
	}
	boolAttr := func(name string) {
		accessor(name, func() interface{} {
			_, ok := sel().Attr(name)
			return ok
		}, func(v goja.Value) {
			if v.ToBoolean() {
				sel().SetAttr(name, "")
			} else {
				sel().RemoveAttr(name)
			}
		})
	}

	_ = el.Set("tagName", strings.ToUpper(n.Data))
	_ = el.Set("nodeName", strings.ToUpper(n.Data))
	accessor("id", attr("id"), setAttr("id"))
	accessor("className", attr("class"), setAttr("class"))
	accessor("href", attr("href"), setAttr("href"))
	accessor("src", attr("src"), setAttr("src"))
	accessor("type", attr("type"), setAttr("type"))
	accessor("placeholder", attr("placeholder"), setAttr("placeholder"))
	boolAttr("checked")
	boolAttr("disabled")
	boolAttr("hidden")

	text := func() interface{} {
		if n.Type == html.TextNode {
			return n.Data
		}
		return sel().Text()
	}
	setText := func(v goja.Value) {
		if n.Type == html.TextNode {
			n.Data = v.String()
			return
		}
		sel().SetText(v.String())
	}
	accessor("textContent", text, setText)
	accessor("innerText", text, setText)
	accessor("innerHTML", func() interface{} {
		h, _ := sel().Html()
		return h
	}, func(v goja.Value) { sel().SetHtml(v.String()) })

	// value lives in the attribute for inputs and in the text for textareas
	accessor("value", func() interface{} {
		if n.Data == "textarea" {
			return sel().Text()
		}
		v, _ := sel().Attr("value")
		return v
	}, func(v goja.Value) {
		if n.Data == "textarea" {
			sel().SetText(v.String())
			return
		}
		sel().SetAttr("value", v.String())
	})

	accessor("parentElement", func() interface{} {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return nil
		}
		return d.wrap(n.Parent)
	}, nil)
	accessor("children", func() interface{} {
		return d.all(sel().Children())
	}, nil)

	_ = el.Set("style", vm.NewObject())
	_ = el.Set("dataset", vm.NewObject())
	_ = el.Set("classList", d.classList(sel))

	_ = el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := sel().Attr(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = el.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		sel().SetAttr(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = el.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		sel().RemoveAttr(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = el.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := sel().Attr(call.Argument(0).String())
		return vm.ToValue(ok)
	})
	_ = el.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := d.nodeOf(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("appendChild: argument is not a node"))
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		n.AppendChild(child)
		return call.Argument(0)
	})
	_ = el.Set("insertBefore", func(call goja.FunctionCall) goja.Value {
		child := d.nodeOf(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("insertBefore: argument is not a node"))
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		if ref := d.nodeOf(call.Argument(1)); ref != nil && ref.Parent == n {
			n.InsertBefore(child, ref)
		} else {
			n.AppendChild(child)
		}
		return call.Argument(0)
	})
	_ = el.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := d.nodeOf(call.Argument(0))
		if child == nil || child.Parent != n {
			panic(vm.NewTypeError("removeChild: node is not a child"))
		}
		n.RemoveChild(child)
		return call.Argument(0)
	})
	_ = el.Set("remove", func(goja.FunctionCall) goja.Value {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return goja.Undefined()
	})
	_ = el.Set("insertAdjacentHTML", func(call goja.FunctionCall) goja.Value {
		switch strings.ToLower(call.Argument(0).String()) {
		case "afterbegin":
			sel().PrependHtml(call.Argument(1).String())
		default:
			sel().AppendHtml(call.Argument(1).String())
		}
		return goja.Undefined()
	})
	_ = el.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return d.first(sel().Find(call.Argument(0).String()))
	})
	_ = el.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return d.all(sel().Find(call.Argument(0).String()))
	})
	_ = el.Set("closest", func(call goja.FunctionCall) goja.Value {
		return d.first(sel().Closest(call.Argument(0).String()))
	})
	_ = el.Set("getBoundingClientRect", func(goja.FunctionCall) goja.Value {
		rect := vm.NewObject()
		for _, k := range []string{"x", "y", "top", "left", "right", "bottom", "width", "height"} {
			_ = rect.Set(k, 0)
		}
		return rect
	})
	_ = el.Set("addEventListener", d.listenerFunc(el))
	for _, name := range []string{"removeEventListener", "focus", "blur", "click", "scrollIntoView", "dispatchEvent", "select", "reset", "submit"} {
		_ = el.Set(name, undefined)
	}

	return el
}

func (d *DOM) classList(sel func() *goquery.Selection) *goja.Object {
	vm := d.vm
	list := vm.NewObject()
	names := func(call goja.FunctionCall) []string {
		out := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			out = append(out, a.String())
		}
		return out
	}

	_ = list.Set("add", func(call goja.FunctionCall) goja.Value {
		sel().AddClass(names(call)...)
		return goja.Undefined()
	})
	_ = list.Set("remove", func(call goja.FunctionCall) goja.Value {
		sel().RemoveClass(names(call)...)
		return goja.Undefined()
	})
	_ = list.Set("toggle", func(call goja.FunctionCall) goja.Value {
		class := call.Argument(0).String()
		s := sel()
		force := call.Argument(1)
		on := !s.HasClass(class)
		if !goja.IsUndefined(force) {
			on = force.ToBoolean()
		}
		if on {
			s.AddClass(class)
		} else {
			s.RemoveClass(class)
		}
		return vm.ToValue(on)
	})
	_ = list.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(sel().HasClass(call.Argument(0).String()))
	})
	return list
}

func (d *DOM) listenerFunc(target *goja.Object) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(1))
		if ok {
			d.listeners = append(d.listeners, listener{
				target: target,
				event:  call.Argument(0).String(),
				fn:     fn,
			})
		}
		return goja.Undefined()
	}
}

func (d *DOM) newEvent(typ string, target *goja.Object) *goja.Object {
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }

	ev := d.vm.NewObject()
	_ = ev.Set("type", typ)
	_ = ev.Set("target", target)
	_ = ev.Set("currentTarget", target)
	_ = ev.Set("key", "")
	_ = ev.Set("defaultPrevented", false)
	_ = ev.Set("preventDefault", noop)
	_ = ev.Set("stopPropagation", noop)
	return ev
}

// dispatch invokes every listener for event once, including on<event>
// properties, and returns the errors they raised
func (d *DOM) dispatch(event string) []error {
	if event == "load" {
		_ = d.document.Set("readyState", "complete")
	}

	var errs []error
	call := func(target *goja.Object, fn goja.Callable) {
		if _, err := fn(target, d.newEvent(event, target)); err != nil {
			errs = append(errs, err)
		}
	}

	// Listeners may register more listeners; only the current set runs
	current := append([]listener(nil), d.listeners...)
	for _, l := range current {
		if l.event == event {
			call(l.target, l.fn)
		}
	}

	targets := []*goja.Object{d.windowTarget, d.document}
	for _, obj := range d.proxies {
		targets = append(targets, obj)
	}
	for _, target := range targets {
		if fn, ok := goja.AssertFunction(target.Get("on" + strings.ToLower(event))); ok {
			call(target, fn)
		}
	}

	return errs
}

func (d *DOM) listenerCount() int {
	return len(d.listeners)
}
