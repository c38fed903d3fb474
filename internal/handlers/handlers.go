package handlers

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"impactfamilies/internal/service"
)

// Services groups everything the HTTP layer calls into
type Services struct {
	Members    *service.MemberService
	Families   *service.FamilyService
	Leaders    *service.LeaderService
	Assignment *service.AssignmentService
	FollowUp   *service.FollowUpService
	Statistics *service.StatisticsService
	Auth       *service.AuthService
}

type Handlers struct {
	services Services
	env      string
	log      zerolog.Logger

	validate *validator.Validate
	trans    ut.Translator
}

func NewHandlers(services Services, env string, validate *validator.Validate, trans ut.Translator, log zerolog.Logger) *Handlers {
	return &Handlers{
		services: services,
		env:      env,
		log:      log.With().Str("component", "http").Logger(),
		validate: validate,
		trans:    trans,
	}
}
