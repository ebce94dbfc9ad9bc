package notifications

import (
	"fmt"
	"log"
	"strings"
	"time"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/gofiber/fiber/v2"
)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

var EmailClient *BrevoService

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func InitEmailService() {
	apiKey := config.Config("BREVO_API_KEY")
	senderEmail := config.Config("EMAIL_SENDER")
	senderName := config.Config("EMAIL_SENDER_NAME")

	if apiKey == "" || senderEmail == "" || senderName == "" {
		log.Println("⚠️ Email service not configured. Missing API Key, Sender Email, or Sender Name.")
		EmailClient = nil
		return
	}

	EmailClient = &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
	}
	log.Println("✅ Email service initialized successfully.")
}

func buildPayload(senderName, senderEmail, toEmail, toName, subject, htmlContent string) (brevoPayload, error) {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return brevoPayload{}, fmt.Errorf("invalid recipient email: %s", toEmail)
	}
	if toName == "" {
		toName = toEmail[:at]
	}
	return brevoPayload{
		Sender:      map[string]string{"name": senderName, "email": senderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}, nil
}

func (s *BrevoService) send(toEmail, toName, subject, htmlContent string) error {
	payload, err := buildPayload(s.SenderName, s.SenderEmail, toEmail, toName, subject, htmlContent)
	if err != nil {
		return err
	}

	agent := fiber.Post(brevoURL).
		Set("accept", "application/json").
		Set("api-key", s.APIKey).
		Timeout(10 * time.Second).
		JSON(payload)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("failed to send request: %v", errs[0])
	}
	if code != fiber.StatusCreated {
		log.Printf("Brevo API error: Status %d, Body: %s", code, string(body))
		return fmt.Errorf("failed to send email via Brevo: %s", string(body))
	}
	return nil
}

// SendEmail is fire-and-forget; callers usually run it in a goroutine.
func SendEmail(toName, toEmail, subject, htmlContent string) {
	if EmailClient == nil {
		return
	}

	if err := EmailClient.send(toEmail, toName, subject, htmlContent); err != nil {
		log.Printf("🔥 Failed to send email to %s: %v", toEmail, err)
		return
	}

	log.Printf("✅ Email sent successfully to %s", toEmail)
}
