package studies

import (
	"sort"

	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type QuestionnaireRepo interface {
	Get(dbc dbctx.Context, id, version int) (*types.Questionnaire, error)
	GetLatest(dbc dbctx.Context, id int) (*types.Questionnaire, error)
	LatestVersions(dbc dbctx.Context, ids []int) (map[int]int, error)
	ListLatestForStudies(dbc dbctx.Context, studyIDs []string, onlyActive bool) ([]*types.Questionnaire, error)
}

type questionnaireRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionnaireRepo(db *gorm.DB, baseLog *logger.Logger) QuestionnaireRepo {
	return &questionnaireRepo{
		db:  db,
		log: baseLog.With("repo", "QuestionnaireRepo"),
	}
}

// Get returns nil when the version does not exist.
func (r *questionnaireRepo) Get(dbc dbctx.Context, id, version int) (*types.Questionnaire, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Questionnaire
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND version = ?", id, version).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *questionnaireRepo) GetLatest(dbc dbctx.Context, id int) (*types.Questionnaire, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Questionnaire
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Order("version DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// LatestVersions maps each known questionnaire id to its highest version.
func (r *questionnaireRepo) LatestVersions(dbc dbctx.Context, ids []int) (map[int]int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[int]int{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID      int
		Version int
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Questionnaire{}).
		Select("id, MAX(version) AS version").
		Where("id IN ?", ids).
		Group("id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Version
	}
	return out, nil
}

// ListLatestForStudies returns the highest version of every questionnaire in
// the given studies. With onlyActive, latest versions that are switched off
// are dropped rather than replaced by an older active version.
func (r *questionnaireRepo) ListLatestForStudies(dbc dbctx.Context, studyIDs []string, onlyActive bool) ([]*types.Questionnaire, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(studyIDs) == 0 {
		return []*types.Questionnaire{}, nil
	}
	var all []*types.Questionnaire
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id IN ?", studyIDs).
		Find(&all).Error; err != nil {
		return nil, err
	}
	latest := make(map[int]*types.Questionnaire, len(all))
	for _, q := range all {
		if cur, ok := latest[q.ID]; !ok || q.Version > cur.Version {
			latest[q.ID] = q
		}
	}
	out := make([]*types.Questionnaire, 0, len(latest))
	for _, q := range latest {
		if onlyActive && !q.Active {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
