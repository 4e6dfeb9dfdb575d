package notifications

import (
	"fmt"
	"net/smtp"
	"os"
)

func SendEmail(to string, subject string, body string) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	if host == "" {
		// Email is optional in dev environments.
		return nil
	}

	auth := smtp.PlainAuth("", from, password, host)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	err := smtp.SendMail(host+":"+port, auth, from, []string{to}, message)
	if err != nil {
		fmt.Println("❌ SMTP error:", err)
	}
	return err
}

// SendBundleLinkEmail invites a sponsor to a shared bundle.
func SendBundleLinkEmail(to, bundleName, link, sponsorName string) error {
	subject := fmt.Sprintf("You've been invited to sponsor %q", bundleName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYou have been invited to help fund the bill bundle %q.\nOpen the link below to view the bills and contribute:\n\n%s\n",
		sponsorName, bundleName, link,
	)
	return SendEmail(to, subject, body)
}
