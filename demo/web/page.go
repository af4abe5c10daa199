package web

import (
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

type pageData struct {
	ComponentID string
	RequestID   string
	SharedID    string
	StampID     string
	Message     string
}

const pageStyle = `
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
code { background: #f2f2f2; padding: 0.1rem 0.3rem; }
.verdict.match { color: #1a7f37; }
.verdict.mismatch { color: #b35900; }
form { display: inline-block; margin-right: 0.5rem; }
`

func page(d pageData) g.Node {
	match := d.ComponentID == d.RequestID

	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.TitleEl(g.Text("Scoped lifetime demo")),
				html.StyleEl(g.Raw(pageStyle)),
			),
			html.Body(
				html.H1(g.Text("Scoped lifetime demo")),

				html.P(g.Text("The same scoped registration, resolved from two different scopes:")),
				idRow("Component scope", d.ComponentID),
				idRow("Request scope", d.RequestID),
				verdict(match),

				html.H2(g.Text("Shared service")),
				idRow("Shared (singleton)", d.SharedID),
				idRow("Transient stamp", d.StampID),
				html.P(
					html.Class("message"),
					g.If(d.Message == "", g.Text("No notifications yet.")),
					g.If(d.Message != "", g.Text(d.Message)),
				),

				html.Form(
					html.Method("post"), html.Action("/notify/view"),
					html.Button(html.Type("submit"), g.Text("Notify via view service")),
				),
				html.Form(
					html.Method("post"), html.Action("/notify/shared"),
					html.Button(html.Type("submit"), g.Text("Notify shared service")),
				),
			),
		),
	)
}

func idRow(label, id string) g.Node {
	return html.P(
		html.Class("id-row"),
		html.Strong(g.Text(label+": ")),
		html.Code(g.Text(id)),
	)
}

func verdict(match bool) g.Node {
	if match {
		return html.P(html.Class("verdict match"),
			g.Text("Identifiers match: both scopes share one instance."))
	}
	return html.P(html.Class("verdict mismatch"),
		g.Text("Identifiers differ: each scope cached its own instance."))
}
