// Package invites sends team invitations: captain checks, the pending
// invite record and the invite email.
package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/authz"
	"github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/email"
	"github.com/codr1/leaguehub/internal/metrics"
	"github.com/codr1/leaguehub/internal/ratelimit"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrNotCaptain         = errors.New("only the team captain can send invites")
	ErrRateLimited        = errors.New("too many invites")
	ErrEmailNotConfigured = errors.New("email service not configured")
	ErrEmailFailed        = errors.New("failed to send invite email")
)

// RateLimitedError reports how long the caller should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many invites, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

type Request struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	TeamName    string `json:"teamName" validate:"required,max=200"`
	LeagueName  string `json:"leagueName" validate:"required,max=200"`
	CaptainName string `json:"captainName" validate:"required,max=200"`
	TeamID      *int64 `json:"teamId,omitempty" validate:"omitempty,gt=0"`
	CaptainID   *int64 `json:"captainId,omitempty" validate:"omitempty,gt=0"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EmailID string `json:"emailId"`
}

// Store is the data access the invite flow needs.
type Store interface {
	GetTeam(ctx context.Context, id int64) (db.Team, error)
	GetPendingInvite(ctx context.Context, teamID int64, email string) (db.TeamInvite, error)
	CreateTeamInvite(ctx context.Context, arg db.CreateTeamInviteParams) (db.TeamInvite, error)
}

type Config struct {
	// BaseURL is the public site root used for the signup link. Optional.
	BaseURL     string
	SendTimeout time.Duration
}

type Service struct {
	store   Store
	sender  email.EmailSender
	limiter *ratelimit.Limiter
	metrics *metrics.Recorder
	cfg     Config
}

// NewService wires the invite flow. sender may be nil when email is not
// configured; limiter and recorder may be nil.
func NewService(store Store, sender email.EmailSender, limiter *ratelimit.Limiter, recorder *metrics.Recorder, cfg Config) *Service {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = email.DefaultSendTimeout
	}
	return &Service{
		store:   store,
		sender:  sender,
		limiter: limiter,
		metrics: recorder,
		cfg:     cfg,
	}
}

// Send invites req.Email on behalf of caller. A pending invite is recorded
// when req.TeamID is set; the record is kept even if the email fails.
func (s *Service) Send(ctx context.Context, caller *authz.AuthUser, req Request, clientIP string) (Result, error) {
	if caller == nil {
		return Result{}, authz.ErrUnauthenticated
	}
	recipient := strings.ToLower(strings.TrimSpace(req.Email))
	logger := log.Ctx(ctx).With().
		Str("recipient", ratelimit.SanitizeIdentifier(recipient)).
		Logger()

	if req.CaptainID != nil && *req.CaptainID != caller.ID {
		return Result{}, ErrNotCaptain
	}

	var team *db.Team
	if req.TeamID != nil {
		t, err := s.store.GetTeam(ctx, *req.TeamID)
		if err != nil {
			if db.IsNotFound(err) {
				return Result{}, ErrTeamNotFound
			}
			return Result{}, fmt.Errorf("load team: %w", err)
		}
		if t.CaptainID != caller.ID {
			return Result{}, ErrNotCaptain
		}
		team = &t
		logger = logger.With().Int64("team_id", t.ID).Logger()
	}

	if s.sender == nil {
		logger.Error().Msg("Invite requested but email is not configured")
		return Result{}, ErrEmailNotConfigured
	}

	if s.limiter != nil {
		if result := s.limiter.Allow(recipient, clientIP); !result.Allowed {
			ratelimit.LogRateLimitExceeded(&logger, recipient, clientIP, result)
			s.metrics.Invite(metrics.ResultRateLimited)
			return Result{}, &RateLimitedError{RetryAfter: result.RetryAfter}
		}
	}

	duplicate := false
	if team != nil {
		var err error
		duplicate, err = s.recordPending(ctx, team.ID, recipient, caller.ID)
		if err != nil {
			return Result{}, err
		}
	}

	msg, err := email.BuildTeamInvite(recipient, email.TeamInviteDetails{
		TeamName:    req.TeamName,
		LeagueName:  req.LeagueName,
		CaptainName: req.CaptainName,
		SignupURL:   s.signupURL(),
	})
	if err != nil {
		return Result{}, err
	}

	emailID, err := email.SendDetached(ctx, s.sender, msg, s.cfg.SendTimeout)
	if err != nil {
		// The pending invite stays; the captain can resend.
		logger.Error().Err(err).Msg("Failed to send invite email")
		s.metrics.Invite(metrics.ResultFailure)
		return Result{}, fmt.Errorf("%w: %v", ErrEmailFailed, err)
	}

	if duplicate {
		s.metrics.Invite(metrics.ResultDuplicate)
	} else {
		s.metrics.Invite(metrics.ResultSuccess)
	}
	logger.Info().Str("email_id", emailID).Bool("resend", duplicate).Msg("Invite sent")

	return Result{
		Success: true,
		Message: fmt.Sprintf("Invitation sent to %s", recipient),
		EmailID: emailID,
	}, nil
}

// recordPending inserts a pending invite unless one already exists. A failed
// lookup is treated as no existing invite; the unique index on pending rows
// still rejects a second insert, which is reported as a duplicate.
func (s *Service) recordPending(ctx context.Context, teamID int64, recipient string, invitedBy int64) (bool, error) {
	logger := log.Ctx(ctx)

	existing, err := s.store.GetPendingInvite(ctx, teamID, recipient)
	switch {
	case err == nil:
		logger.Info().Int64("invite_id", existing.ID).Msg("Pending invite already exists")
		return true, nil
	case db.IsNotFound(err):
	default:
		logger.Warn().Err(err).Int64("team_id", teamID).Msg("Pending invite lookup failed")
	}

	invite, err := s.store.CreateTeamInvite(ctx, db.CreateTeamInviteParams{
		TeamID:    teamID,
		Email:     recipient,
		InvitedBy: invitedBy,
	})
	if errors.Is(err, db.ErrPendingInviteExists) {
		logger.Info().Int64("team_id", teamID).Msg("Pending invite recorded concurrently")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("record invite: %w", err)
	}
	logger.Info().Int64("invite_id", invite.ID).Int64("team_id", teamID).Msg("Recorded pending invite")
	return false, nil
}

func (s *Service) signupURL() string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.BaseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/sign-up"
}
