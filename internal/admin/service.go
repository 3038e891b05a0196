// Package admin manages the registry: municipalities, their residents, the
// ballot items open for support, and credential revocation. Every operation
// here sits behind the admin JWT middleware.
package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ecollect/internal/audit"
	credmodels "ecollect/internal/credential/models"
	"ecollect/internal/registry/models"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/sentinel"
	"ecollect/pkg/requestcontext"
)

// MunicipalityStore is the full municipality contract.
type MunicipalityStore interface {
	Create(ctx context.Context, m *models.Municipality) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Municipality, error)
	FindByBFS(ctx context.Context, bfs string) (*models.Municipality, error)
	List(ctx context.Context) ([]*models.Municipality, error)
}

// ResidentStore is the full resident contract.
type ResidentStore interface {
	Create(ctx context.Context, r *models.Resident) error
	ListByMunicipality(ctx context.Context, municipalityID uuid.UUID) ([]*models.Resident, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BallotStore is the full ballot item contract.
type BallotStore interface {
	Create(ctx context.Context, b *models.BallotItem) error
	FindBySlug(ctx context.Context, slug string) (*models.BallotItem, error)
	List(ctx context.Context) ([]*models.BallotItem, error)
}

// CredentialStore is the slice of credential bookkeeping admin needs.
type CredentialStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*credmodels.Record, error)
	Update(ctx context.Context, id uuid.UUID, patch credmodels.Patch) (*credmodels.Record, error)
}

// Service implements the registry admin operations.
type Service struct {
	municipalities MunicipalityStore
	residents      ResidentStore
	ballots        BallotStore
	credentials    CredentialStore
	audit          *audit.Publisher
}

// New constructs the admin service. The audit publisher may be nil in tests.
func New(municipalities MunicipalityStore, residents ResidentStore, ballots BallotStore, credentials CredentialStore, publisher *audit.Publisher) *Service {
	return &Service{
		municipalities: municipalities,
		residents:      residents,
		ballots:        ballots,
		credentials:    credentials,
		audit:          publisher,
	}
}

// CreateMunicipality registers a municipality for the pilot. The BFS number
// is stored normalized; the canton is derived from it when not supplied.
func (s *Service) CreateMunicipality(ctx context.Context, req CreateMunicipalityRequest) (*models.Municipality, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bfs := models.NormalizeBFS(req.BFSNumber)
	canton := req.Canton
	if canton == "" {
		canton = CantonFromBFS(bfs)
	}

	m := &models.Municipality{
		ID:        uuid.New(),
		Name:      req.Name,
		BFSNumber: bfs,
		Canton:    canton,
		DID:       req.DID,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.municipalities.Create(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "municipality with this BFS number already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create municipality")
	}
	return m, nil
}

// ListMunicipalities returns all registered municipalities.
func (s *Service) ListMunicipalities(ctx context.Context) ([]*models.Municipality, error) {
	out, err := s.municipalities.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list municipalities")
	}
	return out, nil
}

// CreateResident adds a resident to a municipality's register.
func (s *Service) CreateResident(ctx context.Context, municipalityID uuid.UUID, req CreateResidentRequest) (*models.Resident, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.municipalities.FindByID(ctx, municipalityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "municipality not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load municipality")
	}

	r := &models.Resident{
		ID:             uuid.New(),
		MunicipalityID: municipalityID,
		GivenName:      req.GivenName,
		FamilyName:     req.FamilyName,
		BirthDate:      req.BirthDate,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := s.residents.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create resident")
	}
	return r, nil
}

// ListResidents returns the register of a municipality.
func (s *Service) ListResidents(ctx context.Context, municipalityID uuid.UUID) ([]*models.Resident, error) {
	out, err := s.residents.ListByMunicipality(ctx, municipalityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list residents")
	}
	return out, nil
}

// DeleteResident removes a resident from the register.
func (s *Service) DeleteResident(ctx context.Context, id uuid.UUID) error {
	if err := s.residents.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "resident not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete resident")
	}
	return nil
}

// CreateBallotItem opens an initiative or referendum for support.
func (s *Service) CreateBallotItem(ctx context.Context, req CreateBallotItemRequest) (*models.BallotItem, error) {
	req.Normalize()
	validUntil, err := req.Validate()
	if err != nil {
		return nil, err
	}

	b := &models.BallotItem{
		ID:         uuid.New(),
		Slug:       req.Slug,
		Type:       models.BallotItemType(req.Type),
		Level:      req.Level,
		Title:      req.Title,
		Committee:  req.Committee,
		ValidUntil: validUntil,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.ballots.Create(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "ballot item with this slug already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ballot item")
	}
	return b, nil
}

// ListBallotItems returns all ballot items, open and closed.
func (s *Service) ListBallotItems(ctx context.Context) ([]*models.BallotItem, error) {
	out, err := s.ballots.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ballot items")
	}
	return out, nil
}

// RevokeCredential flips an issued credential record to revoked. Only issued
// records can be revoked; the pair becomes free for re-issuance afterwards.
func (s *Service) RevokeCredential(ctx context.Context, id uuid.UUID) (*credmodels.Record, error) {
	record, err := s.credentials.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential record")
	}
	if record.Status != credmodels.StatusIssued {
		return nil, dErrors.New(dErrors.CodeConflict, "only issued credentials can be revoked")
	}

	updated, err := s.credentials.Update(ctx, id, credmodels.StatusPatch(credmodels.StatusRevoked))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
	}

	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:       audit.ActionCredentialRevoked,
			ResidentID:   updated.ResidentID.String(),
			BallotItemID: updated.BallotItemID.String(),
			RecordID:     updated.ID.String(),
		})
	}
	return updated, nil
}

type cantonRange struct {
	lo, hi int
	canton string
}

// bfsRanges maps official BFS municipality number ranges to cantons.
var bfsRanges = []cantonRange{
	{1, 299, "ZH"}, {301, 999, "BE"}, {1001, 1199, "LU"}, {1201, 1220, "UR"},
	{1301, 1375, "SZ"}, {1401, 1407, "OW"}, {1501, 1510, "NW"}, {1601, 1632, "GL"},
	{1701, 1711, "ZG"}, {2003, 2340, "FR"}, {2401, 2622, "SO"}, {2701, 2703, "BS"},
	{2761, 2895, "BL"}, {2901, 2974, "SH"}, {3001, 3038, "AR"}, {3101, 3112, "AI"},
	{3201, 3444, "SG"}, {3501, 3990, "GR"}, {4001, 4326, "AG"}, {4401, 4951, "TG"},
	{5001, 5399, "TI"}, {5401, 5940, "VD"}, {6002, 6300, "VS"}, {6402, 6512, "NE"},
	{6601, 6645, "GE"}, {6700, 6806, "JU"},
}

// CantonFromBFS derives the canton abbreviation from a normalized BFS number.
// Returns empty for numbers outside every known range.
func CantonFromBFS(bfs string) string {
	n := 0
	for _, c := range bfs {
		if c < '0' || c > '9' {
			return ""
		}
		n = n*10 + int(c-'0')
	}
	for _, r := range bfsRanges {
		if n >= r.lo && n <= r.hi {
			return r.canton
		}
	}
	return ""
}
