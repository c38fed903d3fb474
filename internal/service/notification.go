package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"impactfamilies/internal/models"
)

const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultCountryCode = "33"
)

// NotificationConfig is the read-only configuration of the link builder
type NotificationConfig struct {
	BaseURL     string
	CountryCode string
}

// LeaderNotification is what a caller needs to message one family leader
type LeaderNotification struct {
	LeaderID       int64  `json:"leader_id"`
	LeaderName     string `json:"leader_name"`
	PhoneFormatted string `json:"phone_formatted"`
	LinkURL        string `json:"link_url"`
}

// LinkBuilder renders WhatsApp deep links for assignment notifications
type LinkBuilder struct {
	baseURL     string
	countryCode string
}

// NewLinkBuilder creates a link builder, filling in defaults for empty settings
func NewLinkBuilder(cfg NotificationConfig) *LinkBuilder {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	countryCode := cfg.CountryCode
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &LinkBuilder{baseURL: baseURL, countryCode: countryCode}
}

// FollowUpURL is the public page where a leader confirms contact with the member
func (b *LinkBuilder) FollowUpURL(memberID int64) string {
	return b.baseURL + "/follow-up/" + strconv.FormatInt(memberID, 10) + "/"
}

// LeaderNotification builds the payload for one leader, or nil when the leader
// is absent or has no usable phone number.
func (b *LinkBuilder) LeaderNotification(leader *models.Leader, family *models.Family, member *models.Member) *LeaderNotification {
	if leader == nil {
		return nil
	}
	phone := FormatPhone(leader.Phone, b.countryCode)
	if phone == "" {
		return nil
	}

	return &LeaderNotification{
		LeaderID:       leader.ID,
		LeaderName:     leader.FullName(),
		PhoneFormatted: phone,
		LinkURL:        "https://wa.me/" + phone + "?text=" + encodeURIComponent(b.message(leader, family, member)),
	}
}

func (b *LinkBuilder) message(leader *models.Leader, family *models.Family, member *models.Member) string {
	return fmt.Sprintf(`Bonjour %s,

Nouveau membre assigné à votre famille "%s" ! 🏠

👤 *%s %s*
📞 %s
📍 %s

Merci de prendre contact pour l'accueillir !
>>> Merci de valider le fait que vous les ayez contactés via ce lien : %s <<<`,
		leader.FirstName, family.Name,
		member.FirstName, member.LastName, member.Phone, member.Address,
		b.FollowUpURL(member.ID))
}

// FormatPhone strips every non-digit and turns a national number with a
// leading 0 into its international form. Other numbers are returned as digits only.
func FormatPhone(phone, countryCode string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	cleaned := digits.String()
	if strings.HasPrefix(cleaned, "0") {
		if countryCode == "" {
			countryCode = DefaultCountryCode
		}
		return countryCode + cleaned[1:]
	}
	return cleaned
}

// encodeURIComponent escapes s the way browsers do for a query component
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}
