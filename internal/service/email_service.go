package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"

	"impactfamilies/internal/models"
)

// EmailSender is the subset of the SES client used to deliver mail
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    EmailSender
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
	log       zerolog.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is disabled and every send is a logged no-op.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, debug bool, log zerolog.Logger) (*EmailService, error) {
	log = log.With().Str("service", "email").Logger()

	if fromEmail == "" {
		log.Info().Msg("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{debug: debug, log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info().Str("from", fromEmail).Str("region", awsRegion).Msg("email service enabled")
	return newEmailServiceWithSender(sesv2.NewFromConfig(cfg), fromEmail, fromName, debug, log), nil
}

func newEmailServiceWithSender(client EmailSender, fromEmail, fromName string, debug bool, log zerolog.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
		log:       log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendAssignmentEmail tells the family's leaders that a member joined them.
// Leaders without an e-mail address are skipped.
func (s *EmailService) SendAssignmentEmail(ctx context.Context, family *models.FamilyDetails, member *models.Member, followUpURL string) error {
	var recipients []string
	for _, leader := range []*models.Leader{family.Pilote, family.Copilote} {
		if leader != nil && leader.Email != "" {
			recipients = append(recipients, leader.Email)
		}
	}
	if len(recipients) == 0 {
		s.log.Debug().Int64("family_id", family.ID).Msg("no leader e-mail on file, assignment email skipped")
		return nil
	}

	if !s.enabled {
		s.log.Info().Strs("to", recipients).Msg("skipping assignment email (service disabled)")
		return nil
	}

	subject := fmt.Sprintf("Nouveau membre assigné: %s %s", member.FirstName, member.LastName)
	textBody := fmt.Sprintf(`Bonjour Cher Pilote/Copilote,

Un nouveau membre vient d'être assigné à votre Famille d'Impact "%s".

--- Détails ---
Nom: %s
Prénom: %s
Téléphone: %s
Email: %s
Adresse: %s

Parent: %s (%s)
Notes: %s

Veuillez les contacter le plus tôt possible pour leur souhaiter la bienvenue et les intégrer dans la famille d'impact.
Merci de confirmer le contact via ce lien : %s

Cordialement,
Team Intégration
`,
		family.Name,
		member.LastName, member.FirstName, member.Phone, member.Email, member.Address,
		orDefault(member.ParentName, "N/A"), orDefault(member.ParentPhone, "N/A"), orDefault(member.Notes, "Aucune"),
		followUpURL)

	return s.sendEmail(ctx, recipients, subject, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, to []string, subject, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		s.log.Debug().
			Str("from", fromAddress).
			Strs("to", to).
			Str("subject", subject).
			Int("body_bytes", len(textBody)).
			Msg("calling SES SendEmail")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", strings.Join(to, ", "), err)
	}

	event := s.log.Info().Strs("to", to).Str("subject", subject)
	if result.MessageId != nil {
		event = event.Str("message_id", *result.MessageId)
	}
	event.Msg("email sent")
	return nil
}

func orDefault(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
