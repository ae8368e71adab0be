package programme

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"progtrack.org/internal/auth"
)

// UpdatePublisher receives appended updates for live fan-out. Publishing is
// best-effort and happens only after the atomic unit has committed. The
// programme is passed alongside so consumers can apply visibility filtering
// before delivery.
type UpdatePublisher interface {
	PublishUpdate(u Update, p Programme)
}

// Service combines the Scope Engine and the Activity Ledger over a Store.
type Service struct {
	store   Store
	closure Closure
	policy  StatusChangePolicy
	pub     UpdatePublisher
	log     *zap.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithStatusChangePolicy selects who may author status_change updates.
func WithStatusChangePolicy(p StatusChangePolicy) ServiceOption {
	return func(s *Service) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithPublisher attaches a live update publisher.
func WithPublisher(pub UpdatePublisher) ServiceOption {
	return func(s *Service) { s.pub = pub }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService constructs the programme service.
func NewService(store Store, closure Closure, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		closure: closure,
		policy:  StatusChangeAdminOrAssigned,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the fields for programme creation.
type CreateInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    Priority
	PortfolioID string
	Frequency   Frequency
	ScopeMode   ScopeMode
	Districts   []string
	Divisions   []string
	Remarks     string
	Attachments []Attachment
}

// Create registers a new programme. Admin only; new programmes start in the
// received status.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, in CreateInput) (*Programme, error) {
	if !AuthorizeMutation(actor, nil) {
		return nil, auth.ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Frequency == "" {
		in.Frequency = FreqOneTime
	}
	if in.ScopeMode == "" {
		in.ScopeMode = ScopeDistrict
	}
	p := &Programme{
		Title:        in.Title,
		Description:  in.Description,
		OwnerActorID: actor.ID,
		DueDate:      in.DueDate,
		Priority:     in.Priority,
		PortfolioID:  in.PortfolioID,
		Frequency:    in.Frequency,
		ScopeMode:    in.ScopeMode,
		Districts:    in.Districts,
		Divisions:    in.Divisions,
		Status:       StatusReceived,
		Active:       true,
		Remarks:      in.Remarks,
		Attachments:  in.Attachments,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads one programme the actor is allowed to see. An existing programme
// outside the actor's scope reads as not found, so scope cannot be probed.
func (s *Service) Get(ctx context.Context, actor *auth.Actor, id string) (*Programme, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f, err := ComputeFilter(ctx, actor, s.closure)
	if err != nil {
		return nil, err
	}
	if !f.Matches(p) {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns the programmes visible to the actor, newest due date first.
func (s *Service) List(ctx context.Context, actor *auth.Actor, page Page) ([]Programme, error) {
	f, err := ComputeFilter(ctx, actor, s.closure)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, f, page.Normalize())
}

// Update applies an admin mutation of programme core fields. Status is not a
// core field: it moves only through AppendUpdate.
func (s *Service) Update(ctx context.Context, actor *auth.Actor, id string, patch Patch) (*Programme, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !AuthorizeMutation(actor, current) {
		return nil, auth.ErrForbidden
	}
	return s.store.Apply(ctx, id, patch)
}

// AppendUpdate is the only write path for the activity feed and, through it,
// for programme status. The returned update carries the author's identity
// for immediate display.
func (s *Service) AppendUpdate(ctx context.Context, actor *auth.Actor, programmeID string, kind UpdateKind, content string, attachments []Attachment) (*Update, error) {
	if actor == nil {
		return nil, auth.ErrUnauthenticated
	}
	p, err := s.store.Get(ctx, programmeID)
	if err != nil {
		return nil, err
	}

	var newStatus *Status
	switch kind {
	case KindComment, KindAttachment:
		// Any authenticated active actor may comment or attach.
	case KindStatusChange:
		if err := s.authorizeStatusChange(ctx, actor, p); err != nil {
			return nil, err
		}
		status, err := ParseStatus(content)
		if err != nil {
			return nil, err
		}
		newStatus = &status
		content = status.String()
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	u := &Update{
		ProgrammeID: p.ID,
		AuthorID:    actor.ID,
		Author:      actor.Summary(),
		Kind:        kind,
		Content:     content,
		Attachments: attachments,
	}
	if err := s.store.AppendUpdate(ctx, u, newStatus); err != nil {
		return nil, err
	}
	if newStatus != nil {
		s.log.Info("programme status changed",
			zap.String("programme_id", p.ID),
			zap.String("status", newStatus.String()),
			zap.String("actor_id", actor.ID))
	}
	if s.pub != nil {
		if newStatus != nil {
			p.Status = *newStatus
		}
		s.pub.PublishUpdate(*u, *p)
	}
	return u, nil
}

// Feed returns the programme's activity feed, oldest first. The per-call cap
// is feedCap entries.
func (s *Service) Feed(ctx context.Context, actor *auth.Actor, programmeID string) ([]Update, error) {
	if _, err := s.Get(ctx, actor, programmeID); err != nil {
		return nil, err
	}
	return s.store.Feed(ctx, programmeID, feedCap)
}

func (s *Service) authorizeStatusChange(ctx context.Context, actor *auth.Actor, p *Programme) error {
	switch s.policy {
	case StatusChangeAnyActor:
		return nil
	case StatusChangeAdminOrAssigned:
		if actor.Role == auth.RoleAdmin {
			return nil
		}
		f, err := ComputeFilter(ctx, actor, s.closure)
		if err != nil {
			return err
		}
		if f.Matches(p) {
			return nil
		}
		return auth.ErrForbidden
	default:
		return auth.ErrForbidden
	}
}
