package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrLeadNotFound is returned when a lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrDuplicateLead is returned when (handle, channel) is already taken.
	ErrDuplicateLead = errors.New("lead already exists for handle and channel")
	// ErrStateChanged is returned when a conditional transition finds the
	// lead in a different state than expected.
	ErrStateChanged = errors.New("lead state changed concurrently")
)

type LeadRepository struct {
	*pg.DB
}

func NewLeadRepository(db *pg.DB) *LeadRepository {
	return &LeadRepository{
		db,
	}
}

// Create inserts the lead together with its first history entry.
func (r *LeadRepository) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	entity := toLeadEntity(lead)

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.Write(ctx).Create(entity).Error; err != nil {
			return translate(err)
		}
		for _, c := range lead.StateHistory {
			if err := r.Write(ctx).Create(toHistoryEntity(entity.ID, c)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := toLeadModel(entity)
	created.StateHistory = append([]model.StateChange(nil), lead.StateHistory...)
	created.HistoryCount = int64(len(lead.StateHistory))
	return created, nil
}

// GetByID loads a lead with at most historyLimit of its most recent history
// entries, in chronological order.
func (r *LeadRepository) GetByID(ctx context.Context, id string, historyLimit int) (*model.Lead, error) {
	return r.getByID(r.Read(ctx), id, historyLimit)
}

// GetLatest is GetByID against the write side, for reads that feed a write.
func (r *LeadRepository) GetLatest(ctx context.Context, id string, historyLimit int) (*model.Lead, error) {
	return r.getByID(r.Write(ctx), id, historyLimit)
}

func (r *LeadRepository) getByID(db *gorm.DB, id string, historyLimit int) (*model.Lead, error) {
	var entity LeadEntity
	if err := db.Where("id = ?", id).Take(&entity).Error; err != nil {
		return nil, translate(err)
	}
	lead := toLeadModel(&entity)
	if err := attachHistory(db, lead, historyLimit); err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *LeadRepository) FindByHandleAndChannel(ctx context.Context, handle string, channel model.Channel, historyLimit int) (*model.Lead, error) {
	var entity LeadEntity
	err := r.Read(ctx).
		Where("handle = ? AND channel = ?", handle, string(channel)).
		Take(&entity).Error
	if err != nil {
		return nil, translate(err)
	}
	lead := toLeadModel(&entity)
	if err := attachHistory(r.Read(ctx), lead, historyLimit); err != nil {
		return nil, err
	}
	return lead, nil
}

// FindByHandle matches handle as a case-insensitive substring.
func (r *LeadRepository) FindByHandle(ctx context.Context, substr string) ([]*model.Lead, error) {
	var entities []*LeadEntity
	err := r.Read(ctx).
		Where(`handle_folded LIKE ? ESCAPE '\'`, likePattern(substr)).
		Order("last_contacted_at DESC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return r.withHistoryCounts(ctx, toLeadModels(entities))
}

func (r *LeadRepository) FindByState(ctx context.Context, state model.LeadState) ([]*model.Lead, error) {
	var entities []*LeadEntity
	err := r.Read(ctx).
		Where("state = ?", string(state)).
		Order("last_contacted_at DESC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return r.withHistoryCounts(ctx, toLeadModels(entities))
}

func (r *LeadRepository) List(ctx context.Context, f model.LeadFilter) ([]*model.Lead, int64, error) {
	q := r.Read(ctx).Model(&LeadEntity{})

	if f.State != nil {
		q = q.Where("state = ?", string(*f.State))
	}
	if f.Channel != nil {
		q = q.Where("channel = ?", string(*f.Channel))
	}
	if f.NeedsHuman != nil {
		q = q.Where("needs_human_attention = ?", *f.NeedsHuman)
	}
	if f.Handle != "" {
		q = q.Where(`handle_folded LIKE ? ESCAPE '\'`, likePattern(f.Handle))
	}
	if f.From != nil {
		q = q.Where("last_contacted_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("last_contacted_at <= ?", f.To.UTC())
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = model.DefaultSortBy
	}
	column, ok := model.SortColumn(sortBy)
	if !ok {
		column, _ = model.SortColumn(model.DefaultSortBy)
	}
	order := column + " DESC"
	if f.SortOrder == model.SortAsc {
		order = column + " ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var entities []*LeadEntity
	err := q.Order(order).Order("id ASC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}

	leads, err := r.withHistoryCounts(ctx, toLeadModels(entities))
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// Update writes only the fields supplied in u; last_contacted_at falls back
// to now.
func (r *LeadRepository) Update(ctx context.Context, id string, u model.LeadUpdate, now time.Time) error {
	res := r.Write(ctx).Model(&LeadEntity{}).
		Where("id = ?", id).
		Updates(updateColumns(u, now))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func updateColumns(u model.LeadUpdate, now time.Time) map[string]any {
	cols := map[string]any{
		"last_contacted_at": now,
		"updated_at":        now,
	}
	if u.LastContactedAt != nil {
		cols["last_contacted_at"] = u.LastContactedAt.UTC()
	}
	if u.Handle != nil {
		cols["handle"] = *u.Handle
		cols["handle_folded"] = foldHandle(*u.Handle)
	}
	if u.Channel != nil {
		cols["channel"] = string(*u.Channel)
	}
	if u.NeedsHumanAttention != nil {
		cols["needs_human_attention"] = *u.NeedsHumanAttention
	}
	for column, v := range map[string]*string{
		"external_id":         u.ExternalID,
		"first_name":          u.FirstName,
		"last_name":           u.LastName,
		"phone":               u.Phone,
		"email":               u.Email,
		"interests":           u.Interests,
		"purchased_device_id": u.PurchasedDeviceID,
		"purchased_device":    u.PurchasedDevice,
		"notes":               u.Notes,
	} {
		if v != nil {
			cols[column] = *v
		}
	}
	return cols
}

// SetHumanFlag sets needs_human_attention to value, or flips it when value is nil.
func (r *LeadRepository) SetHumanFlag(ctx context.Context, id string, value *bool, now time.Time) error {
	var flag any = gorm.Expr("NOT needs_human_attention")
	if value != nil {
		flag = *value
	}
	res := r.Write(ctx).Model(&LeadEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"needs_human_attention": flag,
			"updated_at":            now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// TransitionState moves the lead from -> to only if it is still in from, and
// appends the history entry in the same transaction.
func (r *LeadRepository) TransitionState(ctx context.Context, id string, from model.LeadState, change model.StateChange) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		res := r.Write(ctx).Model(&LeadEntity{}).
			Where("id = ? AND state = ?", id, string(from)).
			Updates(map[string]any{
				"state":             string(change.State),
				"last_contacted_at": change.Timestamp,
				"updated_at":        change.Timestamp,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			exists, err := r.exists(ctx, id)
			if err != nil {
				return err
			}
			if !exists {
				return ErrLeadNotFound
			}
			return ErrStateChanged
		}
		return r.Write(ctx).Create(toHistoryEntity(id, change)).Error
	})
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		res := r.Write(ctx).Where("id = ?", id).Delete(&LeadEntity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLeadNotFound
		}
		return r.Write(ctx).Where("lead_id = ?", id).Delete(&LeadStateHistoryEntity{}).Error
	})
}

// History returns one page of the lead's state log in chronological order.
func (r *LeadRepository) History(ctx context.Context, id string, page, limit int) ([]model.StateChange, int64, error) {
	exists, err := r.exists(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrLeadNotFound
	}

	q := r.Read(ctx).Model(&LeadStateHistoryEntity{}).Where("lead_id = ?", id)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*LeadStateHistoryEntity
	err = q.Order("id ASC").Limit(limit).Offset((page - 1) * limit).Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toStateChanges(entities), total, nil
}

// Count returns the number of leads created within rng, optionally only
// those flagged for human attention.
func (r *LeadRepository) Count(ctx context.Context, rng model.DateRange, needsHumanOnly bool) (int64, error) {
	q := createdWithin(r.Read(ctx).Model(&LeadEntity{}), rng)
	if needsHumanOnly {
		q = q.Where("needs_human_attention = ?", true)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

type groupCount struct {
	GroupKey string
	Total    int64
}

func (r *LeadRepository) groupBy(ctx context.Context, column string, rng model.DateRange) ([]groupCount, error) {
	var rows []groupCount
	err := createdWithin(r.Read(ctx).Model(&LeadEntity{}), rng).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Order("total DESC, group_key ASC").
		Scan(&rows).Error
	return rows, err
}

// CountByState groups leads created within rng by state, largest group first.
func (r *LeadRepository) CountByState(ctx context.Context, rng model.DateRange) ([]model.StateCount, error) {
	rows, err := r.groupBy(ctx, "state", rng)
	if err != nil {
		return nil, err
	}
	out := make([]model.StateCount, len(rows))
	for i, row := range rows {
		out[i] = model.StateCount{State: model.LeadState(row.GroupKey), Count: row.Total}
	}
	return out, nil
}

func (r *LeadRepository) CountByChannel(ctx context.Context, rng model.DateRange) ([]model.ChannelCount, error) {
	rows, err := r.groupBy(ctx, "channel", rng)
	if err != nil {
		return nil, err
	}
	out := make([]model.ChannelCount, len(rows))
	for i, row := range rows {
		out[i] = model.ChannelCount{Channel: model.Channel(row.GroupKey), Count: row.Total}
	}
	return out, nil
}

// LastContactedSince returns last_contacted_at of every lead contacted at or
// after since.
func (r *LeadRepository) LastContactedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var ts []time.Time
	err := r.Read(ctx).Model(&LeadEntity{}).
		Where("last_contacted_at >= ?", since.UTC()).
		Pluck("last_contacted_at", &ts).Error
	return ts, err
}

func (r *LeadRepository) exists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.Read(ctx).Model(&LeadEntity{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func attachHistory(db *gorm.DB, lead *model.Lead, limit int) error {
	var total int64
	err := db.Model(&LeadStateHistoryEntity{}).Where("lead_id = ?", lead.ID).Count(&total).Error
	if err != nil {
		return err
	}

	var entities []*LeadStateHistoryEntity
	err = db.
		Where("lead_id = ?", lead.ID).
		Order("id DESC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return err
	}
	// newest first from the query, chronological in the result
	for i, j := 0, len(entities)-1; i < j; i, j = i+1, j-1 {
		entities[i], entities[j] = entities[j], entities[i]
	}

	lead.StateHistory = toStateChanges(entities)
	lead.HistoryCount = total
	return nil
}

func (r *LeadRepository) withHistoryCounts(ctx context.Context, leads []*model.Lead) ([]*model.Lead, error) {
	if len(leads) == 0 {
		return leads, nil
	}
	ids := make([]string, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}

	var rows []groupCount
	err := r.Read(ctx).Model(&LeadStateHistoryEntity{}).
		Select("lead_id AS group_key, COUNT(*) AS total").
		Where("lead_id IN ?", ids).
		Group("lead_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GroupKey] = row.Total
	}
	for _, l := range leads {
		l.HistoryCount = counts[l.ID]
	}
	return leads, nil
}

func createdWithin(q *gorm.DB, rng model.DateRange) *gorm.DB {
	if rng.From != nil {
		q = q.Where("created_at >= ?", rng.From.UTC())
	}
	if rng.To != nil {
		q = q.Where("created_at <= ?", rng.To.UTC())
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(substr string) string {
	return "%" + likeEscaper.Replace(foldHandle(substr)) + "%"
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrLeadNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateLead
	default:
		return err
	}
}
