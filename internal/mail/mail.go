// Package mail renders transactional HTML emails and hands them to a Sender.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
)

// PasswordResetSubject is the subject line of password reset emails.
const PasswordResetSubject = "Password Recovery"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"statusColor": func(status string) template.CSS { return template.CSS(Color(status)) },
	"price":       func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).ParseFS(templateFS, "templates/*.html"))

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// NavLink is one entry of an email's navigation bar.
type NavLink struct {
	Label string
	URL   string
}

// Renderer builds messages whose links point at the storefront frontend.
type Renderer struct {
	frontendURL string
}

// NewRenderer creates a renderer for the given frontend base URL.
func NewRenderer(frontendURL string) *Renderer {
	return &Renderer{frontendURL: strings.TrimRight(frontendURL, "/")}
}

type passwordResetData struct {
	Nav      []NavLink
	ResetURL string
}

// PasswordResetMessage renders the password reset email linking to resetURL.
func (r *Renderer) PasswordResetMessage(to, resetURL string) (*Message, error) {
	data := passwordResetData{
		Nav: []NavLink{
			{Label: "Home", URL: r.frontendURL},
			{Label: "Shop", URL: r.frontendURL + "/shop"},
			{Label: "Contact Us", URL: r.frontendURL + "/contact"},
			{Label: "About us", URL: r.frontendURL + "/about_us"},
		},
		ResetURL: resetURL,
	}
	html, err := execute("password_reset.html", data)
	if err != nil {
		return nil, err
	}
	return &Message{To: to, Subject: PasswordResetSubject, HTML: html}, nil
}

type orderStatusData struct {
	Nav       []NavLink
	Order     domain.Order
	Title     string
	Paragraph string
	OrdersURL string
	CreatedAt string
}

// OrderStatusMessage renders the order status email for order.
func (r *Renderer) OrderStatusMessage(to string, order domain.Order) (*Message, error) {
	data := orderStatusData{
		Nav: []NavLink{
			{Label: "Начало", URL: r.frontendURL},
			{Label: "Магазин", URL: r.frontendURL + "/shop"},
			{Label: "За нас", URL: r.frontendURL + "/about_us"},
		},
		Order:     order,
		Title:     Title(order.OrderStatus),
		Paragraph: Paragraph(order.OrderStatus),
		OrdersURL: r.frontendURL + "/orders",
		CreatedAt: order.CreatedAt.Format("02.01.2006 15:04"),
	}
	html, err := execute("order_status.html", data)
	if err != nil {
		return nil, err
	}
	return &Message{To: to, Subject: Subject(order.OrderStatus), HTML: html}, nil
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Subject returns the subject line for an order status email.
func Subject(status string) string {
	switch status {
	case domain.OrderStatusProcessing:
		return "Поръчката ви е получена!"
	case domain.OrderStatusShipped:
		return "Поръчката ви е изпратена!"
	case domain.OrderStatusDelivered:
		return "Поръчката ви е доставена!"
	default:
		return "Order status update"
	}
}

// Title returns the headline shown under the order number.
func Title(status string) string {
	switch status {
	case domain.OrderStatusProcessing:
		return "Благодарим Ви за покупката!"
	case domain.OrderStatusShipped:
		return "Вашата поръчка е изпратена!"
	case domain.OrderStatusDelivered:
		return "Вашата поръчка е доставена!"
	default:
		return "Актуализация на състоянието на поръчката"
	}
}

// Paragraph returns the body paragraph for an order status email.
func Paragraph(status string) string {
	switch status {
	case domain.OrderStatusProcessing:
		return "Благодарим Ви, че пазарувате при нас. Получихме Вашата поръчка и вече започнахме да я обработваме. Скоро ще получите имейл с всички подробности."
	case domain.OrderStatusShipped:
		return "Вашата поръчка е на път. Изпратихме Вашата поръчка и можете да я проследите, като разгледате състоянието на поръчката по-долу. Ако имате въпроси, не се колебайте да се свържете с нас."
	case domain.OrderStatusDelivered:
		return "Вашата поръчка е доставена. Надяваме се да се насладите на покупката си. Ако имате въпроси, не се колебайте да се свържете с нас."
	default:
		return "Актуализация на състоянието на поръчката"
	}
}

// Color returns the CSS color used to highlight a status.
func Color(status string) string {
	switch status {
	case domain.OrderStatusProcessing:
		return "#ffae00"
	case domain.OrderStatusShipped:
		return "#007bff"
	case domain.OrderStatusDelivered:
		return "#40be65"
	default:
		return "#007bff"
	}
}
