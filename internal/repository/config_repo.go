package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
)

// ConfigRepository persiste el agregado ScoringConfiguration. GetByID y GetActive
// cargan rasgos y facetas; textos y recomendaciones se leen por separado.
type ConfigRepository interface {
	GetByID(ctx context.Context, id string) (domain.ScoringConfiguration, error)
	GetActive(ctx context.Context, tenantID string) (domain.ScoringConfiguration, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.ScoringConfiguration, error)
	Create(ctx context.Context, cfg domain.ScoringConfiguration) error
	AddTraits(ctx context.Context, configID string, traits []domain.TraitConfig) error
	AddFacets(ctx context.Context, traitID string, facets []domain.FacetConfig) error
	UpdateTrait(ctx context.Context, t domain.TraitConfig) error
	UpdateFacet(ctx context.Context, f domain.FacetConfig) error
	UpdateThresholds(ctx context.Context, id string, t domain.Thresholds) error
	Activate(ctx context.Context, tenantID, id string) error
	DeactivateAll(ctx context.Context, tenantID string) error
	ListTexts(ctx context.Context, configID string) ([]domain.InterpretiveText, error)
	AddTexts(ctx context.Context, texts []domain.InterpretiveText) error
	UpdateText(ctx context.Context, t domain.InterpretiveText) error
	DeleteText(ctx context.Context, configID, id string) error
	ListRecommendations(ctx context.Context, configID string) ([]domain.Recommendation, error)
	AddRecommendations(ctx context.Context, recs []domain.Recommendation) error
	UpdateRecommendation(ctx context.Context, rec domain.Recommendation) error
	DeleteRecommendation(ctx context.Context, configID, id string) error
}

type PgConfigRepository struct {
	pool *pgxpool.Pool
}

func NewPgConfigRepository(pool *pgxpool.Pool) *PgConfigRepository {
	return &PgConfigRepository{pool: pool}
}

const configColumns = `
	id, tenant_id, name, is_active, very_low_max, low_max, average_max, high_max,
	scale_min, scale_max, method, created_at, updated_at
`

func (r *PgConfigRepository) GetByID(ctx context.Context, id string) (domain.ScoringConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM scoring_configs WHERE id = $1`
	return r.loadAggregate(ctx, query, id)
}

func (r *PgConfigRepository) GetActive(ctx context.Context, tenantID string) (domain.ScoringConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM scoring_configs WHERE tenant_id = $1 AND is_active`
	return r.loadAggregate(ctx, query, tenantID)
}

func (r *PgConfigRepository) loadAggregate(ctx context.Context, query, arg string) (domain.ScoringConfiguration, error) {
	conn := db.Conn(ctx, r.pool)
	cfg, err := scanConfig(conn.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoringConfiguration{}, domain.ErrConfigurationNotFound
	}
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	cfg.Traits, err = r.loadTraits(ctx, conn, cfg.ID)
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	return cfg, nil
}

func (r *PgConfigRepository) loadTraits(ctx context.Context, conn db.DBTX, configID string) ([]domain.TraitConfig, error) {
	const traitQuery = `
		SELECT id, config_id, trait_key, name, weight, is_active, description,
		       very_low_text, low_text, average_text, high_text, very_high_text
		FROM trait_configs
		WHERE config_id = $1
		ORDER BY position, trait_key
	`
	rows, err := conn.Query(ctx, traitQuery, configID)
	if err != nil {
		return nil, err
	}
	var traits []domain.TraitConfig
	index := make(map[string]int)
	for rows.Next() {
		var t domain.TraitConfig
		if err := rows.Scan(
			&t.ID, &t.ConfigID, &t.Key, &t.Name, &t.Weight, &t.IsActive, &t.Description,
			&t.Texts.VeryLow, &t.Texts.Low, &t.Texts.Average, &t.Texts.High, &t.Texts.VeryHigh,
		); err != nil {
			rows.Close()
			return nil, err
		}
		index[t.ID] = len(traits)
		traits = append(traits, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const facetQuery = `
		SELECT f.id, f.trait_id, f.facet_key, f.name, f.weight, f.is_active, f.description,
		       f.very_low_text, f.low_text, f.average_text, f.high_text, f.very_high_text
		FROM facet_configs f
		JOIN trait_configs t ON t.id = f.trait_id
		WHERE t.config_id = $1
		ORDER BY f.position, f.facet_key
	`
	rows, err = conn.Query(ctx, facetQuery, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var f domain.FacetConfig
		if err := rows.Scan(
			&f.ID, &f.TraitID, &f.Key, &f.Name, &f.Weight, &f.IsActive, &f.Description,
			&f.Texts.VeryLow, &f.Texts.Low, &f.Texts.Average, &f.Texts.High, &f.Texts.VeryHigh,
		); err != nil {
			return nil, err
		}
		if i, ok := index[f.TraitID]; ok {
			traits[i].Facets = append(traits[i].Facets, f)
		}
	}
	return traits, rows.Err()
}

func (r *PgConfigRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.ScoringConfiguration, error) {
	query := `SELECT ` + configColumns + `
		FROM scoring_configs
		WHERE tenant_id = $1
		ORDER BY is_active DESC, created_at DESC`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScoringConfiguration
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// Create inserta el agregado completo. Debe correr dentro de una transaccion ReadWrite.
func (r *PgConfigRepository) Create(ctx context.Context, cfg domain.ScoringConfiguration) error {
	const query = `
		INSERT INTO scoring_configs (id, tenant_id, name, is_active, very_low_max, low_max, average_max,
			high_max, scale_min, scale_max, method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	t := cfg.Thresholds
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, query,
		cfg.ID, cfg.TenantID, cfg.Name, cfg.IsActive,
		t.VeryLowMax, t.LowMax, t.AverageMax, t.HighMax,
		cfg.Scale.Min, cfg.Scale.Max, cfg.Method, cfg.CreatedAt, cfg.UpdatedAt,
	); err != nil {
		return err
	}
	if err := r.AddTraits(ctx, cfg.ID, cfg.Traits); err != nil {
		return err
	}
	if err := r.AddTexts(ctx, cfg.Texts); err != nil {
		return err
	}
	return r.AddRecommendations(ctx, cfg.Recommendations)
}

func (r *PgConfigRepository) AddTraits(ctx context.Context, configID string, traits []domain.TraitConfig) error {
	conn := db.Conn(ctx, r.pool)
	var next int
	if err := conn.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM trait_configs WHERE config_id = $1`, configID,
	).Scan(&next); err != nil {
		return err
	}
	const query = `
		INSERT INTO trait_configs (id, config_id, trait_key, name, weight, is_active, description,
			very_low_text, low_text, average_text, high_text, very_high_text, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for i, t := range traits {
		if _, err := conn.Exec(ctx, query,
			t.ID, configID, t.Key, t.Name, t.Weight, t.IsActive, t.Description,
			t.Texts.VeryLow, t.Texts.Low, t.Texts.Average, t.Texts.High, t.Texts.VeryHigh,
			next+i,
		); err != nil {
			return err
		}
		if err := r.AddFacets(ctx, t.ID, t.Facets); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgConfigRepository) AddFacets(ctx context.Context, traitID string, facets []domain.FacetConfig) error {
	if len(facets) == 0 {
		return nil
	}
	conn := db.Conn(ctx, r.pool)
	var next int
	if err := conn.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM facet_configs WHERE trait_id = $1`, traitID,
	).Scan(&next); err != nil {
		return err
	}
	const query = `
		INSERT INTO facet_configs (id, trait_id, facet_key, name, weight, is_active, description,
			very_low_text, low_text, average_text, high_text, very_high_text, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (trait_id, facet_key) DO NOTHING
	`
	for i, f := range facets {
		if _, err := conn.Exec(ctx, query,
			f.ID, traitID, f.Key, f.Name, f.Weight, f.IsActive, f.Description,
			f.Texts.VeryLow, f.Texts.Low, f.Texts.Average, f.Texts.High, f.Texts.VeryHigh,
			next+i,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTrait reescribe los campos editables de un rasgo. La clave no cambia.
func (r *PgConfigRepository) UpdateTrait(ctx context.Context, t domain.TraitConfig) error {
	const query = `
		UPDATE trait_configs
		SET name = $2, weight = $3, is_active = $4, description = $5,
		    very_low_text = $6, low_text = $7, average_text = $8, high_text = $9, very_high_text = $10
		WHERE id = $1
	`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query,
		t.ID, t.Name, t.Weight, t.IsActive, t.Description,
		t.Texts.VeryLow, t.Texts.Low, t.Texts.Average, t.Texts.High, t.Texts.VeryHigh,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTraitNotFound
	}
	return r.touch(ctx, t.ConfigID)
}

func (r *PgConfigRepository) UpdateFacet(ctx context.Context, f domain.FacetConfig) error {
	const query = `
		UPDATE facet_configs
		SET name = $2, weight = $3, is_active = $4, description = $5,
		    very_low_text = $6, low_text = $7, average_text = $8, high_text = $9, very_high_text = $10
		WHERE id = $1
		RETURNING (SELECT config_id FROM trait_configs WHERE id = facet_configs.trait_id)
	`
	var configID string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query,
		f.ID, f.Name, f.Weight, f.IsActive, f.Description,
		f.Texts.VeryLow, f.Texts.Low, f.Texts.Average, f.Texts.High, f.Texts.VeryHigh,
	).Scan(&configID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrFacetNotFound
	}
	if err != nil {
		return err
	}
	return r.touch(ctx, configID)
}

func (r *PgConfigRepository) touch(ctx context.Context, configID string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE scoring_configs SET updated_at = now() WHERE id = $1`, configID)
	return err
}

func (r *PgConfigRepository) UpdateThresholds(ctx context.Context, id string, t domain.Thresholds) error {
	const query = `
		UPDATE scoring_configs
		SET very_low_max = $2, low_max = $3, average_max = $4, high_max = $5, updated_at = now()
		WHERE id = $1
	`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, id, t.VeryLowMax, t.LowMax, t.AverageMax, t.HighMax)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConfigurationNotFound
	}
	return nil
}

// Activate deja una sola configuracion activa por tenant. Debe correr dentro de una
// transaccion: bloquea las filas del tenant, desactiva el resto y activa id.
func (r *PgConfigRepository) Activate(ctx context.Context, tenantID, id string) error {
	conn := db.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, `SELECT id FROM scoring_configs WHERE tenant_id = $1 FOR UPDATE`, tenantID)
	if err != nil {
		return err
	}
	found := false
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return err
		}
		if cid == id {
			found = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if !found {
		return domain.ErrConfigurationNotFound
	}

	if _, err := conn.Exec(ctx,
		`UPDATE scoring_configs SET is_active = FALSE, updated_at = now() WHERE tenant_id = $1 AND id <> $2 AND is_active`,
		tenantID, id,
	); err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		`UPDATE scoring_configs SET is_active = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *PgConfigRepository) DeactivateAll(ctx context.Context, tenantID string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE scoring_configs SET is_active = FALSE, updated_at = now() WHERE tenant_id = $1 AND is_active`, tenantID)
	return err
}

func (r *PgConfigRepository) ListTexts(ctx context.Context, configID string) ([]domain.InterpretiveText, error) {
	const query = `
		SELECT id, config_id, trait_key, band, category, context, text
		FROM interpretive_texts
		WHERE config_id = $1
		ORDER BY trait_key, band, category, id
	`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InterpretiveText
	for rows.Next() {
		var t domain.InterpretiveText
		if err := rows.Scan(&t.ID, &t.ConfigID, &t.TraitKey, &t.Band, &t.Category, &t.Context, &t.Text); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PgConfigRepository) AddTexts(ctx context.Context, texts []domain.InterpretiveText) error {
	conn := db.Conn(ctx, r.pool)
	const query = `
		INSERT INTO interpretive_texts (id, config_id, trait_key, band, category, context, text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, t := range texts {
		if _, err := conn.Exec(ctx, query, t.ID, t.ConfigID, t.TraitKey, t.Band, t.Category, t.Context, t.Text); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgConfigRepository) UpdateText(ctx context.Context, t domain.InterpretiveText) error {
	const query = `
		UPDATE interpretive_texts
		SET trait_key = $3, band = $4, category = $5, context = $6, text = $7
		WHERE id = $1 AND config_id = $2
	`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, t.ID, t.ConfigID, t.TraitKey, t.Band, t.Category, t.Context, t.Text)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTextNotFound
	}
	return nil
}

func (r *PgConfigRepository) DeleteText(ctx context.Context, configID, id string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM interpretive_texts WHERE id = $1 AND config_id = $2`, id, configID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTextNotFound
	}
	return nil
}

func (r *PgConfigRepository) ListRecommendations(ctx context.Context, configID string) ([]domain.Recommendation, error) {
	const query = `
		SELECT id, config_id, trait_key, band, title, text, position
		FROM recommendations
		WHERE config_id = $1
		ORDER BY trait_key, band, position
	`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Recommendation
	for rows.Next() {
		var rec domain.Recommendation
		if err := rows.Scan(&rec.ID, &rec.ConfigID, &rec.TraitKey, &rec.Band, &rec.Title, &rec.Text, &rec.Order); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PgConfigRepository) AddRecommendations(ctx context.Context, recs []domain.Recommendation) error {
	conn := db.Conn(ctx, r.pool)
	const query = `
		INSERT INTO recommendations (id, config_id, trait_key, band, title, text, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, rec := range recs {
		if _, err := conn.Exec(ctx, query, rec.ID, rec.ConfigID, rec.TraitKey, rec.Band, rec.Title, rec.Text, rec.Order); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgConfigRepository) UpdateRecommendation(ctx context.Context, rec domain.Recommendation) error {
	const query = `
		UPDATE recommendations
		SET trait_key = $3, band = $4, title = $5, text = $6, position = $7
		WHERE id = $1 AND config_id = $2
	`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, rec.ID, rec.ConfigID, rec.TraitKey, rec.Band, rec.Title, rec.Text, rec.Order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecommendationNotFound
	}
	return nil
}

func (r *PgConfigRepository) DeleteRecommendation(ctx context.Context, configID, id string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM recommendations WHERE id = $1 AND config_id = $2`, id, configID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecommendationNotFound
	}
	return nil
}

func scanConfig(row pgx.Row) (domain.ScoringConfiguration, error) {
	var c domain.ScoringConfiguration
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.IsActive,
		&c.Thresholds.VeryLowMax,
		&c.Thresholds.LowMax,
		&c.Thresholds.AverageMax,
		&c.Thresholds.HighMax,
		&c.Scale.Min,
		&c.Scale.Max,
		&c.Method,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
