// Package store reads purchase criteria and writes run results to the
// user's backing database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
	"RendaBot/internal/secret"
)

// Table names shared by both backends.
const (
	TableCriteria  = "filtros"
	TablePurchases = "ativos_comprados"
	TableAverages  = "taxas_media_xp"
)

// ErrNoCriteria means the user never saved a filter configuration.
var ErrNoCriteria = errors.New("no filter criteria saved")

// Store is the backing store of one user session.
type Store interface {
	LatestCriteria(ctx context.Context, userID string) (*model.FilterCriteria, error)
	InsertPurchases(ctx context.Context, userID string, recs []model.PurchaseRecord) error
	UpsertAverage(ctx context.Context, userID string, avg model.AverageRate) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string `yaml:"driver"` // rest or postgres
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	DSN    string `yaml:"dsn"`
}

// Open connects the configured backend on behalf of creds.
func Open(ctx context.Context, cfg Config, creds model.Credentials, log logrus.FieldLogger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "rest":
		return NewREST(cfg.URL, cfg.APIKey, creds.AccessToken, nil, log), nil
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN, log)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// criteriaRow is the stored shape of a filter configuration.
type criteriaRow struct {
	Selections    map[string][]string `json:"selecionados"`
	Signature     string              `json:"assinatura"`
	PurchaseLimit float64             `json:"limite_compra"`
	ClassOrder    []string            `json:"ordem_classe"`
	MinRates      map[string]float64  `json:"taxa_minima"`
}

// criteria converts a stored row, decrypting the signature with the user id.
// An undecryptable signature is left empty and logged; the flow then fails at
// the keypad instead of typing garbage.
func (r criteriaRow) criteria(userID string, log logrus.FieldLogger) *model.FilterCriteria {
	c := &model.FilterCriteria{
		Selections:    r.Selections,
		PurchaseLimit: r.PurchaseLimit,
		MinRates:      map[model.IndexClass]float64{},
	}
	if c.Selections == nil {
		c.Selections = map[string][]string{}
	}
	for _, s := range r.ClassOrder {
		if cls, ok := model.ParseIndexClass(s); ok {
			c.ClassOrder = append(c.ClassOrder, cls)
		}
	}
	for k, v := range r.MinRates {
		if cls, ok := model.ParseIndexClass(k); ok {
			c.MinRates[cls] = v
		}
	}

	switch {
	case r.Signature == "":
		log.Warn("criteria have no signature")
	default:
		plain, err := secret.Decrypt(r.Signature, userID)
		if err != nil || plain == "" {
			log.WithError(err).Warn("signature could not be decrypted")
			break
		}
		c.Signature = plain
	}
	return c
}

// purchaseRow is a PurchaseRecord tagged with its owner.
type purchaseRow struct {
	UserID string `json:"user_id"`
	model.PurchaseRecord
}

// averageRow is an AverageRate tagged with its owner.
type averageRow struct {
	UserID string `json:"user_id"`
	model.AverageRate
}
