package view

import (
	cmp "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	g "maragu.dev/gomponents/html"

	"github.com/nfrund/chatline/internal/domain"
)

// OnlineUser is one entry of the presence list.
type OnlineUser struct {
	ID   string
	Name string
}

// Home is the landing page. Signed-in users get a presence panel that htmx
// refreshes from /presence/fragment.
func Home(user *domain.User) cmp.Node {
	return cmp.Group{
		Navbar(user),
		g.Main(
			g.Class("container"),
			g.H1(cmp.Text("Chatline")),
			cmp.If(user == nil, signedOut()),
			cmp.If(user != nil, signedIn(user)),
		),
	}
}

func signedOut() cmp.Node {
	return g.P(
		g.A(g.Href("/login"), cmp.Text("Log in")),
		cmp.Text(" or "),
		g.A(g.Href("/signup"), cmp.Text("create an account")),
		cmp.Text(" to start chatting."),
	)
}

func signedIn(user *domain.User) cmp.Node {
	return g.Section(
		g.P(cmp.Textf("Signed in as %s", user.FullName)),
		g.P(g.A(g.Href("/chat"), cmp.Text("Open your conversations"))),
		g.H2(cmp.Text("Online now")),
		g.Div(
			g.ID("online-users"),
			hx.Get("/presence/fragment"),
			hx.Trigger("load, every 5s"),
			hx.Swap("innerHTML"),
			g.P(cmp.Text("Loading...")),
		),
	)
}

// Navbar links the pages together. Logout is a form so it stays a POST.
func Navbar(user *domain.User) cmp.Node {
	if user == nil {
		return g.Nav(
			g.Class("navbar"),
			g.A(g.Href("/"), cmp.Text("Chatline")),
			g.A(g.Href("/login"), cmp.Text("Log in")),
			g.A(g.Href("/signup"), cmp.Text("Sign up")),
		)
	}
	return g.Nav(
		g.Class("navbar"),
		g.A(g.Href("/"), cmp.Text("Chatline")),
		g.A(g.Href("/chat"), cmp.Text("Chats")),
		g.A(g.Href("/profile"), cmp.Text("Profile")),
		g.Form(
			g.Method("post"), g.Action("/logout"),
			g.Button(g.Type("submit"), cmp.Text("Log out")),
		),
	)
}

// OnlineUsers renders the presence list fragment.
func OnlineUsers(users []OnlineUser) cmp.Node {
	if len(users) == 0 {
		return g.P(g.Class("presence-empty"), cmp.Text("Nobody is online."))
	}
	return g.Ul(
		g.Class("presence-list"),
		cmp.Map(users, func(u OnlineUser) cmp.Node {
			return g.Li(g.Data("user-id", u.ID), cmp.Text(u.Name))
		}),
	)
}
