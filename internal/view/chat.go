package view

import (
	"strings"
	"time"
	"unicode/utf8"

	cmp "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	g "maragu.dev/gomponents/html"

	"github.com/nfrund/chatline/internal/domain"
)

// Contact is one row of the chat sidebar.
type Contact struct {
	ID         string
	FullName   string
	ProfilePic string
	Online     bool
}

// ChatPage is the sidebar of contacts next to the open conversation, if any.
// peer is nil until a contact is picked.
func ChatPage(me *domain.User, contacts []Contact, peer *domain.User, messages []domain.Message, sendError string) cmp.Node {
	activeID := ""
	if peer != nil {
		activeID = peer.ID
	}
	return cmp.Group{
		Navbar(me),
		g.Div(
			g.Class("chat-layout"),
			Sidebar(contacts, activeID),
			g.Main(
				g.Class("chat-main"),
				cmp.If(peer == nil, g.Div(
					g.Class("chat-empty"),
					g.H1(cmp.Text("Welcome to Chatline!")),
					g.P(cmp.Text("Select a user to start chatting.")),
				)),
				cmp.Iff(peer != nil, func() cmp.Node {
					return conversation(me, peer, messages, sendError)
				}),
			),
		),
	}
}

// Sidebar lists every other user with an online marker. It refreshes itself
// so the markers follow presence.
func Sidebar(contacts []Contact, activeID string) cmp.Node {
	refresh := "/chat/sidebar"
	if activeID != "" {
		refresh += "?active=" + activeID
	}
	return g.Aside(
		g.ID("sidebar"),
		g.Class("sidebar"),
		hx.Get(refresh),
		hx.Trigger("every 5s"),
		hx.Swap("outerHTML"),
		cmp.If(len(contacts) == 0, g.P(g.Class("sidebar-empty"), cmp.Text("No users found"))),
		g.Ul(cmp.Map(contacts, func(ct Contact) cmp.Node {
			status := "Offline"
			if ct.Online {
				status = "Online"
			}
			return g.Li(
				g.Data("user-id", ct.ID),
				cmp.If(ct.ID == activeID, g.Class("active")),
				g.A(
					g.Href("/chat/"+ct.ID),
					avatar(ct.FullName, ct.ProfilePic),
					cmp.If(ct.Online, g.Span(g.Class("online-dot"))),
					g.Span(g.Class("contact-name"), cmp.Text(ct.FullName)),
					g.Small(g.Class("contact-status"), cmp.Text(status)),
				),
			)
		})),
	)
}

func conversation(me, peer *domain.User, messages []domain.Message, sendError string) cmp.Node {
	return g.Section(
		g.Class("conversation"),
		g.Header(avatar(peer.FullName, peer.ProfilePic), g.H2(cmp.Text(peer.FullName))),
		// Polling keeps the view current; the websocket push is for API clients.
		g.Div(
			g.ID("messages"),
			hx.Get("/chat/"+peer.ID+"/messages"),
			hx.Trigger("every 3s"),
			hx.Swap("innerHTML"),
			MessageList(me.ID, messages),
		),
		SendError(sendError),
		g.Form(
			g.ID("send-form"),
			g.Method("post"), g.Action("/chat/"+peer.ID+"/messages"),
			g.EncType("multipart/form-data"),
			hx.Post("/chat/"+peer.ID+"/messages"),
			hx.Target("#messages"),
			hx.Swap("innerHTML"),
			cmp.Attr("hx-encoding", "multipart/form-data"),
			cmp.Attr("hx-on::after-request", "if(event.detail.successful) this.reset()"),
			g.Input(g.Name("text"), g.Type("text"), g.Placeholder("Type a message..."), g.AutoComplete("off")),
			g.Input(g.Name("image"), g.Type("file"), g.Accept("image/*")),
			g.Button(g.Type("submit"), cmp.Text("Send")),
		),
	)
}

// MessageList renders a conversation oldest first. Messages sent by meID are
// marked as mine.
func MessageList(meID string, messages []domain.Message) cmp.Node {
	if len(messages) == 0 {
		return g.P(g.Class("messages-empty"), cmp.Text("No messages yet. Say hi!"))
	}
	return cmp.Map(messages, func(m domain.Message) cmp.Node {
		side := "message theirs"
		if m.SenderID == meID {
			side = "message mine"
		}
		return g.Article(
			g.Class(side),
			g.Data("message-id", m.ID),
			cmp.Iff(m.ImageURL != nil, func() cmp.Node {
				return g.Img(g.Src(*m.ImageURL), g.Alt("message image"))
			}),
			cmp.Iff(m.Text != nil, func() cmp.Node {
				return g.P(cmp.Text(*m.Text))
			}),
			g.Time(g.DateTime(m.CreatedAt.UTC().Format(time.RFC3339)), cmp.Text(m.CreatedAt.Format("15:04"))),
		)
	})
}

// SendError is the slot under the conversation for a rejected send.
func SendError(msg string) cmp.Node {
	return g.P(g.ID("send-error"), g.Class("form-error"), cmp.Text(msg))
}

// SendResult is the htmx response to a send: the refreshed list plus the
// error slot swapped out of band.
func SendResult(meID string, messages []domain.Message, sendError string) cmp.Node {
	return cmp.Group{
		MessageList(meID, messages),
		g.P(g.ID("send-error"), g.Class("form-error"), hx.SwapOOB("true"), cmp.Text(sendError)),
	}
}

func avatar(name, pic string) cmp.Node {
	if pic != "" {
		return g.Img(g.Class("avatar"), g.Src(pic), g.Alt(name))
	}
	return g.Span(g.Class("avatar initials"), cmp.Text(initials(name)))
}

func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteString(strings.ToUpper(string(r)))
	}
	return b.String()
}
