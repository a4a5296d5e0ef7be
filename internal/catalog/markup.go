package catalog

import (
	"fmt"
	"html"
)

// Markup is display content that is already escaped and safe to render
// as-is. Callers must not escape it again.
type Markup string

func (m Markup) String() string {
	return string(m)
}

func imageTag(src string, size int) Markup {
	return Markup(fmt.Sprintf(`<img src="%s" width=%d height=%d></img>`, html.EscapeString(src), size, size))
}

func missingImageHeading(name string) Markup {
	return Markup(fmt.Sprintf("<h3>%s has not image </h3>", html.EscapeString(name)))
}
