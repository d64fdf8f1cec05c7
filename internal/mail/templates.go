package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const imageURL = "https://img.icons8.com/ios11/600/000000/forgot-password.png"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ForgotPasswordData fills the password reset request email
type ForgotPasswordData struct {
	Username  string
	ResetLink string
	ImageURL  string
}

// ResetPasswordData fills the password changed confirmation email
type ResetPasswordData struct {
	Username  string
	Email     string
	IPAddress string
	Date      string
	ImageURL  string
}

// ForgotPasswordTemplate renders the email carrying a password reset link
func ForgotPasswordTemplate(username, resetLink string) (string, error) {
	return render("forgot_password.html", ForgotPasswordData{
		Username:  username,
		ResetLink: resetLink,
		ImageURL:  imageURL,
	})
}

// ResetPasswordTemplate renders the email confirming a password change
func ResetPasswordTemplate(data ResetPasswordData) (string, error) {
	if data.ImageURL == "" {
		data.ImageURL = imageURL
	}
	return render("reset_password.html", data)
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
