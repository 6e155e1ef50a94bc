package view

import (
	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"
)

// AuthForm is what the login and signup pages echo back after a failed submit.
// Passwords are never echoed.
type AuthForm struct {
	FullName string
	Email    string
	Error    string
}

// LoginPage renders the login form.
func LoginPage(form AuthForm) cmp.Node {
	return cmp.Group{
		Navbar(nil),
		g.Main(
			g.Class("container auth"),
			g.H1(cmp.Text("Log in")),
			formError(form.Error),
			g.Form(
				g.ID("login-form"), g.Method("post"), g.Action("/login"),
				field("email", "Email", "email", form.Email, "email"),
				field("password", "Password", "password", "", "current-password"),
				g.Button(g.Type("submit"), cmp.Text("Log in")),
			),
			g.P(cmp.Text("No account yet? "), g.A(g.Href("/signup"), cmp.Text("Sign up"))),
		),
	}
}

// SignupPage renders the signup form.
func SignupPage(form AuthForm) cmp.Node {
	return cmp.Group{
		Navbar(nil),
		g.Main(
			g.Class("container auth"),
			g.H1(cmp.Text("Create account")),
			formError(form.Error),
			g.Form(
				g.ID("signup-form"), g.Method("post"), g.Action("/signup"),
				field("fullName", "Full name", "text", form.FullName, "name"),
				field("email", "Email", "email", form.Email, "email"),
				field("password", "Password", "password", "", "new-password"),
				g.Button(g.Type("submit"), cmp.Text("Sign up")),
			),
			g.P(cmp.Text("Already registered? "), g.A(g.Href("/login"), cmp.Text("Log in"))),
		),
	}
}

func field(name, label, typ, value, autocomplete string) cmp.Node {
	return g.Label(
		g.For(name),
		cmp.Text(label),
		g.Input(
			g.ID(name), g.Name(name), g.Type(typ),
			cmp.If(value != "", g.Value(value)),
			g.AutoComplete(autocomplete),
		),
	)
}

func formError(msg string) cmp.Node {
	if msg == "" {
		return nil
	}
	return g.P(g.Class("form-error"), g.Role("alert"), cmp.Text(msg))
}
