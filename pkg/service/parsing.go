package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/regexflow/regexflow/pkg/matcher"
	"github.com/regexflow/regexflow/pkg/normalize"
	"github.com/regexflow/regexflow/pkg/selector"
	"github.com/regexflow/regexflow/pkg/store"
	"github.com/regexflow/regexflow/pkg/types"
)

// ErrEmptyMessage is returned when a parse request carries no text.
var ErrEmptyMessage = errors.New("message text is required")

// ErrNotDeletable is returned when a message log is no longer in the
// unparsed queue.
var ErrNotDeletable = errors.New("only unmatched messages can be deleted")

// ParseOutcome is the result of one parse attempt, or of a duplicate
// short-circuit.
type ParseOutcome struct {
	Status      types.ParseStatus
	Duplicate   bool
	MessageLog  types.MessageLog
	Transaction *types.ParsedTransaction
}

// ParsingService runs inbound messages through selection, extraction, and
// normalization, and records every attempt.
type ParsingService struct {
	store      store.Store
	matcher    *matcher.BoundedMatcher
	selector   *selector.Selector
	normalizer *normalize.Normalizer
	log        *logrus.Logger
	now        func() time.Time
	newID      func() string
}

// NewParsingService wires a parsing service over the shared matcher.
func NewParsingService(st store.Store, m *matcher.BoundedMatcher, log *logrus.Logger) *ParsingService {
	return &ParsingService{
		store:      st,
		matcher:    m,
		selector:   selector.New(m, log),
		normalizer: normalize.New(),
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Parse runs one message through the pipeline. Every attempt is logged; a
// repeated (uploader, text) pair short-circuits to the earlier outcome
// instead of parsing again.
func (s *ParsingService) Parse(ctx context.Context, userID, text, sender string) (ParseOutcome, error) {
	if text == "" {
		return ParseOutcome{}, ErrEmptyMessage
	}

	if existing, found, err := s.store.FindMessageLog(ctx, userID, text); err != nil {
		return ParseOutcome{}, fmt.Errorf("checking for duplicate message: %w", err)
	} else if found {
		return s.duplicateOutcome(ctx, existing)
	}

	logEntry := types.MessageLog{
		ID:         s.newID(),
		Text:       text,
		Sender:     sender,
		UploaderID: userID,
		CreatedAt:  s.now(),
	}

	candidates, err := s.store.ListTemplatesByStatus(ctx, types.StatusActive)
	if err != nil {
		return ParseOutcome{}, fmt.Errorf("loading active templates: %w", err)
	}

	winner, found := s.selector.SelectBest(text, candidates)
	if !found {
		logEntry.Status = types.ParseNoMatch
		return s.finishWithoutTransaction(ctx, logEntry)
	}

	// The winner is re-run through the full bounded pipeline; scoring used
	// the cheap path without deadline bookkeeping.
	res := s.matcher.Run(ctx, winner.Pattern, text)
	if res.Err != nil {
		logEntry.Status = types.ParseError
		logEntry.TemplateID = winner.ID
		logEntry.ErrMessage = res.Err.Error()
		return s.finishWithoutTransaction(ctx, logEntry)
	}
	if !res.Matched {
		logEntry.Status = types.ParseNoMatch
		return s.finishWithoutTransaction(ctx, logEntry)
	}

	fields := s.normalizer.Normalize(res.Fields, winner)
	logEntry.Status = fields.Status
	logEntry.TemplateID = winner.ID
	logEntry.ErrMessage = fields.Message

	saved, err := s.store.SaveMessageLog(ctx, logEntry)
	if err != nil {
		return ParseOutcome{}, fmt.Errorf("recording message log: %w", err)
	}

	txn := types.ParsedTransaction{
		ID:           s.newID(),
		MessageLogID: saved.ID,
		UserID:       userID,
		TemplateID:   winner.ID,
		BankName:     fields.BankName,
		Amount:       fields.Amount,
		Balance:      fields.Balance,
		Kind:         fields.Kind,
		AccountID:    fields.AccountID,
		Merchant:     fields.Merchant,
		Mode:         fields.Mode,
		Date:         fields.Date,
		Reference:    fields.Reference,
		Extracted:    res.Fields,
		CreatedAt:    s.now(),
	}
	if _, err := s.store.SaveTransaction(ctx, txn); err != nil {
		return ParseOutcome{}, fmt.Errorf("recording transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"template": winner.ID,
		"status":   fields.Status,
		"elapsed":  res.Elapsed,
	}).Info("message parsed")

	return ParseOutcome{Status: fields.Status, MessageLog: saved, Transaction: &txn}, nil
}

// ListUnparsed returns the NO_MATCH queue across all uploaders, oldest
// first, so makers can turn misses into new templates.
func (s *ParsingService) ListUnparsed(ctx context.Context) ([]types.MessageLog, error) {
	return s.store.ListUnparsedMessages(ctx)
}

// DeleteUnparsed removes a message from the queue. Messages that have since
// parsed are kept as history.
func (s *ParsingService) DeleteUnparsed(ctx context.Context, id string) error {
	msg, err := s.store.GetMessageLog(ctx, id)
	if err != nil {
		return err
	}
	if msg.Status != types.ParseNoMatch {
		return ErrNotDeletable
	}
	return s.store.DeleteMessageLog(ctx, id)
}

// Transactions returns a user's parsed transactions, newest first.
func (s *ParsingService) Transactions(ctx context.Context, userID string) ([]types.ParsedTransaction, error) {
	return s.store.ListTransactionsByUser(ctx, userID)
}

func (s *ParsingService) duplicateOutcome(ctx context.Context, existing types.MessageLog) (ParseOutcome, error) {
	out := ParseOutcome{Status: existing.Status, Duplicate: true, MessageLog: existing}

	txn, found, err := s.store.FindTransactionByMessage(ctx, existing.ID)
	if err != nil {
		return ParseOutcome{}, fmt.Errorf("loading existing transaction: %w", err)
	}
	if found {
		out.Transaction = &txn
	}
	return out, nil
}

func (s *ParsingService) finishWithoutTransaction(ctx context.Context, logEntry types.MessageLog) (ParseOutcome, error) {
	saved, err := s.store.SaveMessageLog(ctx, logEntry)
	if err != nil {
		return ParseOutcome{}, fmt.Errorf("recording message log: %w", err)
	}
	return ParseOutcome{Status: saved.Status, MessageLog: saved}, nil
}
