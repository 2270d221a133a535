package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	History(ctx context.Context, id uuid.UUID) ([]*History, error)
	// CoversStudent reports whether the student belongs to one of the staff
	// member's departments.
	CoversStudent(ctx context.Context, staffID, studentID uuid.UUID) (bool, error)
}

// Tx is one database transaction. Every mutation of the service runs inside
// exactly one Tx.
type Tx interface {
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Insert(ctx context.Context, t *Transaction) error
	InsertItems(ctx context.Context, id uuid.UUID, items []LineItem) error
	LinkPackage(ctx context.Context, id, packageID uuid.UUID) error
	ReplaceItems(ctx context.Context, id uuid.UUID, items []LineItem) error
	Update(ctx context.Context, id uuid.UUID, changes Changes) (bool, error)
	UpdateStatus(ctx context.Context, change StatusChange) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	AddHistory(ctx context.Context, h *History) error
	AppendLog(ctx context.Context, e *auditlog.Entry) error
	CoversStudent(ctx context.Context, staffID, studentID uuid.UUID) (bool, error)
	Commit() error
	Rollback() error
}

// Pricer reads current catalog prices.
type Pricer interface {
	CredentialPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Credential, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*catalog.Package, error)
}

// Notifier is told about every committed lifecycle change.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

type Service struct {
	repo     Repository
	prices   Pricer
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, prices Pricer, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		prices:   prices,
		notifier: notifier,
		now:      time.Now,
	}
}

type ItemParams struct {
	CredentialID uuid.UUID
	Quantity     int
}

type CreateParams struct {
	PackageID *uuid.UUID
	Items     []ItemParams
}

// Changes lists the columns an edit writes. Nil fields are left alone.
type Changes struct {
	TotalAmount    *int64
	ProofOfPayment *string
	PaymentDate    *time.Time
}

// StatusChange is applied only while the row is still in From.
type StatusChange struct {
	ID           uuid.UUID
	From         Status
	To           Status
	At           time.Time
	Remarks      string
	ScheduledFor *time.Time
}

type EditParams struct {
	Items          []ItemParams
	ProofOfPayment *string
	PaymentDate    *time.Time
}

type ListFilter struct {
	Status    *Status
	StudentID *uuid.UUID
	StaffID   *uuid.UUID // requesters in the staff member's departments
	From      *time.Time
	To        *time.Time
}

// Create submits a new request for the acting student. The total is computed
// from current catalog prices.
func (s *Service) Create(ctx context.Context, actor identity.Actor, params CreateParams) (*Transaction, error) {
	if !actor.Is(identity.RoleStudent) {
		return nil, apperr.Forbidden("only students can submit requests")
	}

	hasPackage := params.PackageID != nil
	hasItems := len(params.Items) > 0

	if hasPackage == hasItems {
		return nil, apperr.Invalid("choose either a package or individual credentials")
	}

	t := &Transaction{
		StudentID: actor.ID,
		Status:    StatusSubmitted,
	}

	if hasPackage {
		pkg, err := s.prices.GetPackage(ctx, *params.PackageID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Invalid("unknown package %s", *params.PackageID)
			}

			return nil, fmt.Errorf("pricing package: %w", err)
		}

		if pkg.IsDeleted {
			return nil, apperr.Invalid("package %s is no longer offered", pkg.Name)
		}

		t.PackageID = &pkg.ID
		t.PackageName = pkg.Name
		t.TotalAmount = pkg.Price()
	} else {
		items, total, err := s.priceItems(ctx, params.Items)
		if err != nil {
			return nil, err
		}

		t.Items = items
		t.TotalAmount = total
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	if err := tx.Insert(ctx, t); err != nil {
		return nil, err
	}

	if hasPackage {
		err = tx.LinkPackage(ctx, t.ID, *t.PackageID)
	} else {
		err = tx.InsertItems(ctx, t.ID, t.Items)
	}

	if err != nil {
		return nil, err
	}

	activity := fmt.Sprintf("submitted request %s totalling %d", t.ID, t.TotalAmount)
	if err := tx.AppendLog(ctx, entry(actor, auditlog.TypeTransactionSubmitted, activity)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	s.notify(ctx, Event{
		TransactionID: t.ID,
		StudentID:     t.StudentID,
		To:            StatusSubmitted,
		Actor:         actor,
		At:            t.CreatedAt,
	})

	return t, nil
}

// Get returns a request. Students only see their own.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.Role.IsStaffSide() && t.StudentID != actor.ID {
		return nil, apperr.Forbidden("this request belongs to another student")
	}

	if err := inDepartments(ctx, s.repo, actor, t); err != nil {
		return nil, err
	}

	return t, nil
}

// List scopes the filter to what the actor may see: students their own
// requests, staff the requests of students in their departments.
func (s *Service) List(ctx context.Context, actor identity.Actor, filter ListFilter) ([]*Transaction, error) {
	switch actor.Role {
	case identity.RoleStudent:
		filter.StudentID = &actor.ID
		filter.StaffID = nil
	case identity.RoleStaff:
		filter.StaffID = &actor.ID
	case identity.RoleAdmin, identity.RoleSAScheduling, identity.RoleSAReleasing:
	default:
		return nil, apperr.Forbidden("unknown role %q", actor.Role)
	}

	return s.repo.List(ctx, filter)
}

func (s *Service) History(ctx context.Context, actor identity.Actor, id uuid.UUID) ([]*History, error) {
	if !actor.Role.IsStaffSide() {
		return nil, apperr.Forbidden("history is only visible to staff")
	}

	if actor.Is(identity.RoleStaff) {
		t, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := inDepartments(ctx, s.repo, actor, t); err != nil {
			return nil, err
		}
	}

	return s.repo.History(ctx, id)
}

type ScheduleParams struct {
	Date    time.Time
	Remarks string
}

func (s *Service) Schedule(ctx context.Context, actor identity.Actor, id uuid.UUID, params ScheduleParams) (*Transaction, error) {
	if params.Date.IsZero() {
		return nil, apperr.Invalid("schedule date is required")
	}

	date := params.Date

	return s.transition(ctx, actor, id, StatusChange{To: StatusScheduled, Remarks: params.Remarks, ScheduledFor: &date})
}

func (s *Service) MarkReady(ctx context.Context, actor identity.Actor, id uuid.UUID, remarks string) (*Transaction, error) {
	return s.transition(ctx, actor, id, StatusChange{To: StatusReady, Remarks: remarks})
}

func (s *Service) Claim(ctx context.Context, actor identity.Actor, id uuid.UUID, remarks string) (*Transaction, error) {
	return s.transition(ctx, actor, id, StatusChange{To: StatusClaimed, Remarks: remarks})
}

func (s *Service) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, remarks string) (*Transaction, error) {
	return s.transition(ctx, actor, id, StatusChange{To: StatusRejected, Remarks: remarks})
}

// transition moves a request forward. The status write only lands if the row
// still holds the status that was read, so concurrent attempts on the same
// request see exactly one winner.
func (s *Service) transition(ctx context.Context, actor identity.Actor, id uuid.UUID, change StatusChange) (*Transaction, error) {
	change.Remarks = strings.TrimSpace(change.Remarks)
	if change.Remarks == "" {
		return nil, apperr.Invalid("remarks are required")
	}

	if !mayMoveTo(actor, change.To) {
		return nil, apperr.Forbidden("%s cannot mark requests %s", actor.Role, change.To)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	t, err := tx.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inDepartments(ctx, tx, actor, t); err != nil {
		return nil, err
	}

	if !t.Status.CanTransitionTo(change.To) {
		return nil, fmt.Errorf("%w: %s cannot become %s", ErrStatusConflict, t.Status, change.To)
	}

	// Releasing assistants only hand over requests that were prepared.
	if actor.Is(identity.RoleSAReleasing) && t.Status != StatusReady {
		return nil, apperr.Forbidden("only ready requests can be released by an assistant")
	}

	change.ID = id
	change.From = t.Status
	change.At = s.now()

	ok, err := tx.UpdateStatus(ctx, change)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, lostRace(ctx, tx, id)
	}

	history := &History{
		TransactionID: id,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Status:        change.To,
		Remarks:       change.Remarks,
	}
	if err := tx.AddHistory(ctx, history); err != nil {
		return nil, err
	}

	activity := fmt.Sprintf("marked request %s %s: %s", id, change.To, change.Remarks)
	if err := tx.AppendLog(ctx, entry(actor, activityType(change.To), activity)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	t.apply(change)

	s.notify(ctx, Event{
		TransactionID: id,
		StudentID:     t.StudentID,
		From:          change.From,
		To:            change.To,
		Actor:         actor,
		Remarks:       change.Remarks,
		At:            change.At,
	})

	return t, nil
}

// Edit updates a Submitted request of the acting student. Supplied items
// replace the current lines and are repriced from the catalog; the total
// follows them. Items can only be edited in individual mode.
func (s *Service) Edit(ctx context.Context, actor identity.Actor, id uuid.UUID, params EditParams) (*Transaction, error) {
	t, _, err := s.edit(ctx, actor, id, params)
	return t, err
}

// ReplaceProof stores a new proof of payment, optionally with its payment
// date, and returns the name of the proof it replaced, if any. The caller owns
// the stored files.
func (s *Service) ReplaceProof(
	ctx context.Context,
	actor identity.Actor,
	id uuid.UUID,
	proof string,
	paymentDate *time.Time,
) (*Transaction, string, error) {
	if proof == "" {
		return nil, "", apperr.Invalid("proof of payment is required")
	}

	return s.edit(ctx, actor, id, EditParams{ProofOfPayment: &proof, PaymentDate: paymentDate})
}

func (s *Service) edit(ctx context.Context, actor identity.Actor, id uuid.UUID, params EditParams) (*Transaction, string, error) {
	if len(params.Items) == 0 && params.ProofOfPayment == nil && params.PaymentDate == nil {
		return nil, "", apperr.Invalid("nothing to update")
	}

	var (
		items []LineItem
		total int64
	)

	if len(params.Items) > 0 {
		var err error

		items, total, err = s.priceItems(ctx, params.Items)
		if err != nil {
			return nil, "", err
		}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("begin edit: %w", err)
	}
	defer tx.Rollback()

	t, err := tx.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if err := ownSubmitted(actor, t); err != nil {
		return nil, "", err
	}

	var (
		changes Changes
		fields  []string
	)

	if items != nil {
		if t.IsPackage() {
			return nil, "", apperr.Invalid("package requests cannot change their credentials")
		}

		if err := tx.ReplaceItems(ctx, id, items); err != nil {
			return nil, "", err
		}

		changes.TotalAmount = &total
		fields = append(fields, "amount")
	}

	if params.ProofOfPayment != nil {
		changes.ProofOfPayment = params.ProofOfPayment
		fields = append(fields, "proof of payment")
	}

	if params.PaymentDate != nil {
		changes.PaymentDate = params.PaymentDate
		fields = append(fields, "payment date")
	}

	ok, err := tx.Update(ctx, id, changes)
	if err != nil {
		return nil, "", err
	}

	if !ok {
		return nil, "", lostRace(ctx, tx, id)
	}

	activity := fmt.Sprintf("edited %s of request %s", strings.Join(fields, " and "), id)
	if err := tx.AppendLog(ctx, entry(actor, auditlog.TypeTransactionEdited, activity)); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit edit: %w", err)
	}

	if items != nil {
		t.Items = items
		t.TotalAmount = total
	}

	var replaced string

	if changes.ProofOfPayment != nil {
		if t.ProofOfPayment != *changes.ProofOfPayment {
			replaced = t.ProofOfPayment
		}

		t.ProofOfPayment = *changes.ProofOfPayment
	}

	if changes.PaymentDate != nil {
		t.PaymentDate = changes.PaymentDate
	}

	return t, replaced, nil
}

// Delete removes a Submitted request of the acting student with its lines.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	t, err := tx.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := ownSubmitted(actor, t); err != nil {
		return err
	}

	ok, err := tx.Delete(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return lostRace(ctx, tx, id)
	}

	activity := fmt.Sprintf("deleted request %s", id)
	if err := tx.AppendLog(ctx, entry(actor, auditlog.TypeTransactionDeleted, activity)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	return nil
}

func (s *Service) priceItems(ctx context.Context, params []ItemParams) ([]LineItem, int64, error) {
	ids := make([]uuid.UUID, 0, len(params))

	for _, p := range params {
		if p.Quantity <= 0 {
			return nil, 0, apperr.Invalid("quantity must be positive")
		}

		for _, id := range ids {
			if id == p.CredentialID {
				return nil, 0, apperr.Invalid("credential %s listed twice", id)
			}
		}

		ids = append(ids, p.CredentialID)
	}

	creds, err := s.prices.CredentialPrices(ctx, ids)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, 0, apperr.Invalid("%v", err)
		}

		return nil, 0, fmt.Errorf("pricing credentials: %w", err)
	}

	items := make([]LineItem, 0, len(params))

	var total int64

	for _, p := range params {
		cred, ok := creds[p.CredentialID]
		if !ok {
			return nil, 0, apperr.Invalid("unknown credential %s", p.CredentialID)
		}

		item := LineItem{
			CredentialID:   cred.ID,
			CredentialName: cred.Name,
			Quantity:       p.Quantity,
			UnitPrice:      cred.Price,
			Subtotal:       int64(p.Quantity) * cred.Price,
		}
		total += item.Subtotal
		items = append(items, item)
	}

	return items, total, nil
}

func (s *Service) notify(ctx context.Context, e Event) {
	if s.notifier == nil {
		return
	}

	if err := s.notifier.Notify(ctx, e); err != nil {
		slog.Error("failed to notify lifecycle change", "transaction", e.TransactionID, "status", e.To, "error", err)
	}
}

// lostRace explains a guarded write that matched no row.
func lostRace(ctx context.Context, tx Tx, id uuid.UUID) error {
	if _, err := tx.Get(ctx, id); err != nil {
		return err
	}

	return ErrStatusConflict
}

func ownSubmitted(actor identity.Actor, t *Transaction) error {
	if !actor.Is(identity.RoleStudent) || t.StudentID != actor.ID {
		return apperr.Forbidden("only the requesting student can change this request")
	}

	if t.Status != StatusSubmitted {
		return fmt.Errorf("%w: request is already %s", ErrStatusConflict, t.Status)
	}

	return nil
}

// mayMoveTo reports whether the role may perform the action that leads to status.
func mayMoveTo(actor identity.Actor, to Status) bool {
	switch to {
	case StatusScheduled:
		return actor.Is(identity.RoleStaff, identity.RoleAdmin, identity.RoleSAScheduling)
	case StatusReady, StatusRejected:
		return actor.Is(identity.RoleStaff, identity.RoleAdmin)
	case StatusClaimed:
		return actor.Is(identity.RoleStaff, identity.RoleAdmin, identity.RoleSAReleasing)
	case StatusSubmitted:
		return false
	}

	return false
}

func activityType(to Status) auditlog.Type {
	switch to {
	case StatusScheduled:
		return auditlog.TypeTransactionScheduled
	case StatusReady:
		return auditlog.TypeTransactionReady
	case StatusClaimed:
		return auditlog.TypeTransactionClaimed
	case StatusRejected:
		return auditlog.TypeTransactionRejected
	case StatusSubmitted:
		return auditlog.TypeTransactionSubmitted
	}

	return auditlog.TypeTransactionEdited
}

func entry(actor identity.Actor, typ auditlog.Type, activity string) *auditlog.Entry {
	return &auditlog.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Type:      typ,
		Activity:  activity,
	}
}

// apply mirrors a committed status change onto t.
func (t *Transaction) apply(c StatusChange) {
	at := c.At
	t.Status = c.To
	t.UpdatedAt = &at

	switch c.To {
	case StatusScheduled:
		t.ScheduledFor = c.ScheduledFor
		t.ScheduledAt = &at
		t.ScheduleRemarks = c.Remarks
	case StatusReady:
		t.ReadyAt = &at
		t.ReadyRemarks = c.Remarks
	case StatusClaimed:
		t.ClaimedAt = &at
		t.ClaimRemarks = c.Remarks
	case StatusRejected:
		t.RejectedAt = &at
		t.RejectRemarks = c.Remarks
	case StatusSubmitted:
	}
}
