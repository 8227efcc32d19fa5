package shortcode

import (
	"html"
	"strconv"
	"strings"
)

type tabTitle struct {
	id    string
	title string
}

type tabsState struct {
	id      string
	counter int
	scroll  bool
	height  string
	titles  []tabTitle
}

func RegisterTabs(r *Registry) {
	r.Register("trx_tabs", renderTabs)
	r.Register("trx_tab", renderTab)
}

func renderTabs(rc *RenderContext, attrs Attrs, content string) string {
	initial := attrs.Get("initial", "1")
	scroll := attrs.Get("scroll", "no")
	style := attrs.Get("style", "1")
	id := attrs.Get("id", "")
	class := attrs.Get("class", "")
	animation := attrs.Get("animation", "")
	css := attrs.Get("css", "")

	class = joinClasses(class, positionClasses(attrs.Get("top", ""), attrs.Get("right", ""), attrs.Get("bottom", ""), attrs.Get("left", "")))
	if width := attrs.Get("width", ""); width != "" {
		css += "width:" + cssValue(width) + ";"
	}
	if id == "" {
		id = rc.newID("sc_tabs")
	}

	state := &tabsState{
		id:     id,
		scroll: paramIsOn(scroll),
		height: cssValue(attrs.Get("height", "")),
	}
	if names := attrs.Get("tab_names", ""); names != "" {
		for _, name := range strings.Split(names, "|") {
			state.titles = append(state.titles, tabTitle{title: name})
		}
	}

	// nested tab sets get their own counter
	parent := rc.tabs
	rc.tabs = state
	body := rc.Do(content)
	rc.tabs = parent

	count := len(state.titles)
	active, _ := strconv.Atoi(strings.TrimSpace(initial))
	active = max(1, min(count, active))

	var b strings.Builder
	b.WriteString(`<div id="` + html.EscapeString(id) + `"`)
	b.WriteString(` class="sc_tabs sc_tabs_style_` + html.EscapeString(style))
	if class != "" {
		b.WriteString(" " + html.EscapeString(class))
	}
	b.WriteString(`"`)
	if css != "" {
		b.WriteString(` style="` + html.EscapeString(css) + `"`)
	}
	if !paramIsOff(animation) {
		b.WriteString(` data-animation="` + html.EscapeString(animationClasses(animation)) + `"`)
	}
	b.WriteString(` data-active="` + strconv.Itoa(active-1) + `">`)

	b.WriteString(`<ul class="sc_tabs_titles">`)
	for i, t := range state.titles {
		classes := "sc_tabs_title"
		if i == 0 {
			classes += " first"
		} else if i == count-1 {
			classes += " last"
		}
		tabID := html.EscapeString(t.id)
		b.WriteString(`<li class="` + classes + `">`)
		b.WriteString(`<a href="#` + tabID + `" class="theme_button" id="` + tabID + `_tab">` + t.title + `</a>`)
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	b.WriteString(body)
	b.WriteString(`</div>`)

	return b.String()
}

func renderTab(rc *RenderContext, attrs Attrs, content string) string {
	state := rc.tabs
	if state == nil {
		// a tab outside a tab set renders as a plain panel
		state = &tabsState{id: rc.newID("sc_tab")}
	}

	state.counter++
	n := state.counter

	id := attrs.Get("id", "")
	if id == "" {
		id = attrs.Get("tab_id", "")
	}
	if id == "" {
		id = state.id + "_" + strconv.Itoa(n)
	}

	title := attrs.Get("title", "")
	if n <= len(state.titles) {
		state.titles[n-1].id = id
		if title != "" {
			state.titles[n-1].title = title
		}
	} else {
		state.titles = append(state.titles, tabTitle{id: id, title: title})
	}

	class := attrs.Get("class", "")
	css := attrs.Get("css", "")
	escID := html.EscapeString(id)

	var b strings.Builder
	b.WriteString(`<div id="` + escID + `" class="sc_tabs_content`)
	if n%2 == 1 {
		b.WriteString(" odd")
	} else {
		b.WriteString(" even")
	}
	if n == 1 {
		b.WriteString(" first")
	}
	if class != "" {
		b.WriteString(" " + html.EscapeString(class))
	}
	b.WriteString(`"`)
	if css != "" {
		b.WriteString(` style="` + html.EscapeString(css) + `"`)
	}
	b.WriteString(`>`)

	if state.scroll {
		height := state.height
		if height == "" {
			height = "200px"
		}
		b.WriteString(`<div id="` + escID + `_scroll" class="sc_scroll sc_scroll_vertical" style="height:` + height + `;">`)
		b.WriteString(`<div class="sc_scroll_wrapper swiper-wrapper"><div class="sc_scroll_slide swiper-slide">`)
	}

	b.WriteString(rc.Do(content))

	if state.scroll {
		b.WriteString(`</div></div><div id="` + escID + `_scroll_bar" class="sc_scroll_bar sc_scroll_bar_vertical ` + escID + `_scroll_bar"></div></div>`)
	}
	b.WriteString(`</div>`)

	return b.String()
}
