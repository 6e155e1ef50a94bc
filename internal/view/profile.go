package view

import (
	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"

	"github.com/nfrund/chatline/internal/domain"
)

// ProfilePage shows the signed-in user's details and the form to change name
// or picture.
func ProfilePage(user *domain.User, notice, formErr string) cmp.Node {
	return cmp.Group{
		Navbar(user),
		g.Main(
			g.Class("container profile"),
			g.H1(cmp.Text("Profile")),
			g.Div(g.Class("profile-picture"), avatar(user.FullName, user.ProfilePic)),
			cmp.If(notice != "", g.P(g.Class("form-notice"), g.Role("status"), cmp.Text(notice))),
			formError(formErr),
			g.Form(
				g.ID("profile-form"),
				g.Method("post"), g.Action("/profile"),
				g.EncType("multipart/form-data"),
				field("fullName", "Full name", "text", user.FullName, "name"),
				g.Label(
					g.For("profilePic"),
					cmp.Text("Profile picture"),
					g.Input(g.ID("profilePic"), g.Name("profilePic"), g.Type("file"), g.Accept("image/*")),
				),
				g.Button(g.Type("submit"), cmp.Text("Save")),
			),
			g.Dl(
				g.Dt(cmp.Text("Email")), g.Dd(cmp.Text(user.Email)),
				g.Dt(cmp.Text("Member since")), g.Dd(cmp.Text(user.CreatedAt.Format("2006-01-02"))),
			),
		),
	}
}
