package model

import "time"

// PurchaseRecord is the durable artifact of one finalized purchase.
type PurchaseRecord struct {
	AssetName      string    `json:"nome_ativo"`
	Class          string    `json:"indexador"`
	ContractedRate string    `json:"taxa_contratada"`
	EffectiveRate  string    `json:"taxa_grossup"`
	MinInvestment  float64   `json:"valor_minimo"`
	AppliedAmount  float64   `json:"valor_aplicado"`
	Maturity       string    `json:"vencimento,omitempty"`
	PurchasedAt    time.Time `json:"data_hora_compra"`
}

// AverageRate is the mean offered rate of one class/exemption group on a date.
type AverageRate struct {
	Date      string  `json:"data_referencia"`
	Class     string  `json:"indexador"`
	Formatted string  `json:"taxa_media"`
	TaxExempt bool    `json:"isento_imposto"`
	Mean      float64 `json:"-"`
	Count     int     `json:"-"`
}

// Credentials identify the user on whose behalf a run executes.
type Credentials struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

// Valid reports whether both fields are present.
func (c Credentials) Valid() bool {
	return c.AccessToken != "" && c.UserID != ""
}
