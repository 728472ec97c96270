package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
)

// Postgres reads and writes the same tables directly over lib/pq.
type Postgres struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// OpenPostgres connects and pings the database.
func OpenPostgres(ctx context.Context, dsn string, log logrus.FieldLogger) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", model.ErrBackingStore, err)
	}
	return NewPostgres(db, log), nil
}

// NewPostgres wraps an open database.
func NewPostgres(db *sql.DB, log logrus.FieldLogger) *Postgres {
	return &Postgres{db: db, log: log}
}

func (p *Postgres) LatestCriteria(ctx context.Context, userID string) (*model.FilterCriteria, error) {
	var (
		row        criteriaRow
		selections []byte
		minRates   []byte
		signature  sql.NullString
		limit      sql.NullFloat64
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT selecionados, assinatura, limite_compra, ordem_classe, taxa_minima
		FROM filtros
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(&selections, &signature, &limit, pq.Array(&row.ClassOrder), &minRates)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCriteria
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query criteria: %v", model.ErrBackingStore, err)
	}
	if len(selections) > 0 {
		if err := json.Unmarshal(selections, &row.Selections); err != nil {
			return nil, fmt.Errorf("decode selecionados: %w", err)
		}
	}
	if len(minRates) > 0 {
		if err := json.Unmarshal(minRates, &row.MinRates); err != nil {
			return nil, fmt.Errorf("decode taxa_minima: %w", err)
		}
	}
	row.Signature = signature.String
	row.PurchaseLimit = limit.Float64
	return row.criteria(userID, p.log), nil
}

// InsertPurchases writes all records in one transaction.
func (p *Postgres) InsertPurchases(ctx context.Context, userID string, recs []model.PurchaseRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", model.ErrBackingStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ativos_comprados
			(user_id, nome_ativo, indexador, data_hora_compra, taxa_contratada,
			 taxa_grossup, valor_minimo, valor_aplicado, vencimento)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", model.ErrBackingStore, err)
	}
	defer stmt.Close()

	for _, r := range recs {
		var maturity any
		if r.Maturity != "" {
			maturity = r.Maturity
		}
		if _, err := stmt.ExecContext(ctx, userID, r.AssetName, r.Class, r.PurchasedAt,
			r.ContractedRate, r.EffectiveRate, r.MinInvestment, r.AppliedAmount, maturity); err != nil {
			return fmt.Errorf("%w: insert %s: %v", model.ErrBackingStore, r.AssetName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", model.ErrBackingStore, err)
	}
	return nil
}

func (p *Postgres) UpsertAverage(ctx context.Context, userID string, a model.AverageRate) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO taxas_media_xp (user_id, data_referencia, indexador, taxa_media, isento_imposto)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, data_referencia, indexador, isento_imposto) DO UPDATE SET
			taxa_media = EXCLUDED.taxa_media
	`, userID, a.Date, a.Class, a.Formatted, a.TaxExempt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			p.log.WithFields(logrus.Fields{"code": pqErr.Code.Name(), "class": a.Class}).Warn("average upsert rejected")
		}
		return fmt.Errorf("%w: upsert average: %v", model.ErrBackingStore, err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }
