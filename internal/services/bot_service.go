// Package services – BotService
//
// BotService turns "@farcasturd @target" replies into recorded turd events
// and answers each one with a reply cast. Casts arrive either from the
// webhook receiver (one at a time) or from the cron poll (a batch of recent
// mentions). The cast hash is the idempotency key: a cast already in the
// turds table is skipped, and a concurrent duplicate insert is reported as
// "duplicate" rather than an error.
//
// Reply failures are logged and counted but never fail the cast or the batch.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/farcasturd-backend/internal/bot"
	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/repo"
)

// Bot outcome statuses.
const (
	BotIgnored          = "ignored"
	BotAlreadyProcessed = "already_processed"
	BotUserNotFound     = "user_not_found"
	BotSelfTarget       = "self_target"
	BotNotHolder        = "not_holder"
	BotRateLimited      = "rate_limited"
	BotDuplicate        = "duplicate"
	BotSuccess          = "success"
)

// MentionsBatchSize is how many notifications one poll fetches.
const MentionsBatchSize = 25

// TurdLog is the write side of the turds table.
type TurdLog interface {
	Processed(ctx context.Context, castHash string) (bool, error)
	Record(ctx context.Context, ev *domain.TurdEvent) error
	CountReceived(ctx context.Context, fid int64) (int64, error)
}

// UserSearch resolves a username to a profile.
type UserSearch interface {
	SearchUser(ctx context.Context, username string) (*farcaster.Profile, error)
}

// CastClient publishes replies and lists mentions.
type CastClient interface {
	PublishCast(ctx context.Context, signerUUID, text, parentHash string) (string, error)
	Mentions(ctx context.Context, fid int64, limit int) ([]farcaster.Cast, error)
}

// MintChecker reports whether a FID holds a Farcasturd.
type MintChecker interface {
	HasMinted(ctx context.Context, fid int64) (bool, error)
}

// SenderLimiter decides whether a sender may act now. Check does not use
// up allowance; Consume is called once the event is recorded.
type SenderLimiter interface {
	Check(ctx context.Context, senderFID int64) (Decision, error)
	Consume(ctx context.Context, senderFID int64) error
}

// Outcome is the result of processing one cast.
type Outcome struct {
	Status   string `json:"status"`
	CastHash string `json:"castHash,omitempty"`
	Reply    string `json:"reply,omitempty"`
	Count    int64  `json:"count,omitempty"`
}

// PollSummary is the result of one PollMentions run.
type PollSummary struct {
	Status    string `json:"status"`
	Fetched   int    `json:"fetched"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// BotService runs the turd game.
type BotService struct {
	Turds   TurdLog
	Users   UserSearch
	Casts   CastClient
	Minted  MintChecker // nil disables NFT gating
	Limiter SenderLimiter

	BotFID     int64
	BotHandle  string
	SignerUUID string

	Now func() time.Time
}

func (s *BotService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ProcessCast handles one candidate cast.
func (s *BotService) ProcessCast(ctx context.Context, cast farcaster.Cast) (Outcome, error) {
	tr := otel.Tracer("services/BotService")
	ctx, span := tr.Start(ctx, "ProcessCast",
		trace.WithAttributes(attribute.String("cast.hash", cast.Hash)),
	)
	defer span.End()

	out, err := s.process(ctx, cast)
	if err != nil {
		botCasts.WithLabelValues("error").Inc()
		span.RecordError(err)
		return out, err
	}
	botCasts.WithLabelValues(out.Status).Inc()
	span.SetAttributes(attribute.String("status", out.Status))
	return out, nil
}

func (s *BotService) process(ctx context.Context, cast farcaster.Cast) (Outcome, error) {
	log := zerolog.Ctx(ctx).With().Str("cast", cast.Hash).Logger()
	out := Outcome{CastHash: cast.Hash}

	if cast.Hash == "" {
		out.Status = BotIgnored
		return out, nil
	}
	done, err := s.Turds.Processed(ctx, cast.Hash)
	if err != nil {
		return out, fmt.Errorf("check processed: %w", err)
	}
	if done {
		out.Status = BotAlreadyProcessed
		return out, nil
	}

	cmd := bot.ParseCommand(cast, s.BotHandle)
	if cmd == nil {
		out.Status = BotIgnored
		return out, nil
	}

	target, err := s.Users.SearchUser(ctx, cmd.TargetUsername)
	if err != nil {
		if !errors.Is(err, farcaster.ErrUserNotFound) {
			return out, fmt.Errorf("resolve @%s: %w", cmd.TargetUsername, err)
		}
		out.Status = BotUserNotFound
		out.Reply = fmt.Sprintf("@%s User @%s not found! 💩", cmd.SenderUsername, cmd.TargetUsername)
		s.reply(ctx, &log, cast.Hash, out.Reply)
		return out, nil
	}
	if target.FID == cmd.SenderFID {
		out.Status = BotSelfTarget
		return out, nil
	}

	if s.Minted != nil {
		holder, err := s.Minted.HasMinted(ctx, cmd.SenderFID)
		if err != nil {
			log.Warn().Err(err).Int64("sender", cmd.SenderFID).Msg("nft check failed, denying")
			holder = false
		}
		if !holder {
			out.Status = BotNotHolder
			out.Reply = fmt.Sprintf("@%s Mint your Farcasturd first to start sending turds! 💩", cmd.SenderUsername)
			s.reply(ctx, &log, cast.Hash, out.Reply)
			return out, nil
		}
	}

	if s.Limiter != nil {
		dec, err := s.Limiter.Check(ctx, cmd.SenderFID)
		if err != nil {
			return out, fmt.Errorf("rate limit: %w", err)
		}
		if !dec.Allowed {
			out.Status = BotRateLimited
			out.Reply = fmt.Sprintf("@%s %s", cmd.SenderUsername, dec.Reason)
			s.reply(ctx, &log, cast.Hash, out.Reply)
			return out, nil
		}
	}

	ev := &domain.TurdEvent{
		FromFID:      cmd.SenderFID,
		FromUsername: cmd.SenderUsername,
		ToFID:        target.FID,
		ToUsername:   cmd.TargetUsername,
		CastHash:     cast.Hash,
		CreatedAt:    s.now(),
	}
	if err := s.Turds.Record(ctx, ev); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			out.Status = BotDuplicate
			return out, nil
		}
		return out, fmt.Errorf("record turd: %w", err)
	}
	if s.Limiter != nil {
		// A concurrent cast from the same sender may have taken the slot
		// since Check. The turd is recorded either way.
		if err := s.Limiter.Consume(ctx, cmd.SenderFID); err != nil {
			log.Warn().Err(err).Int64("sender", cmd.SenderFID).Msg("rate limit consume failed")
		}
	}

	count, err := s.Turds.CountReceived(ctx, target.FID)
	if err != nil {
		return out, fmt.Errorf("count received: %w", err)
	}
	out.Status = BotSuccess
	out.Count = count
	out.Reply = fmt.Sprintf("💩 @%s sent a turd to @%s!\n\nTotal turds received: %d", cmd.SenderUsername, cmd.TargetUsername, count)
	s.reply(ctx, &log, cast.Hash, out.Reply)
	log.Info().Int64("from", ev.FromFID).Int64("to", ev.ToFID).Int64("count", count).Msg("turd recorded")
	return out, nil
}

func (s *BotService) reply(ctx context.Context, log *zerolog.Logger, parent, text string) {
	if s.Casts == nil || s.SignerUUID == "" {
		log.Debug().Msg("no signer configured, reply skipped")
		return
	}
	if _, err := s.Casts.PublishCast(ctx, s.SignerUUID, text, parent); err != nil {
		botCasts.WithLabelValues("reply_failed").Inc()
		log.Error().Err(err).Msg("reply cast failed")
	}
}

// PollMentions fetches recent mentions of the bot and processes each.
func (s *BotService) PollMentions(ctx context.Context) (PollSummary, error) {
	tr := otel.Tracer("services/BotService")
	ctx, span := tr.Start(ctx, "PollMentions")
	defer span.End()

	casts, err := s.Casts.Mentions(ctx, s.BotFID, MentionsBatchSize)
	if err != nil {
		span.RecordError(err)
		return PollSummary{Status: "error"}, err
	}
	sum := PollSummary{Status: "success", Fetched: len(casts)}
	for _, c := range casts {
		out, err := s.ProcessCast(ctx, c)
		switch {
		case err != nil:
			sum.Failed++
			zerolog.Ctx(ctx).Error().Err(err).Str("cast", c.Hash).Msg("mention processing failed")
		case out.Status == BotSuccess:
			sum.Processed++
		default:
			sum.Skipped++
		}
	}
	return sum, nil
}
