package filters

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"RendaBot/internal/model"
	"RendaBot/internal/page"
	"RendaBot/internal/page/pagetest"
)

func TestChipLabels(t *testing.T) {
	tests := []struct {
		name string
		sel  map[string][]string
		want []string
	}{
		{
			name: "maturity is cumulative",
			sel:  map[string][]string{model.CategoryMaturity: {"ate_2_anos"}},
			want: []string{"De 1 mês a 6 meses", "De 6 meses a 12 meses", "de 1 ano a 2 anos"},
		},
		{
			name: "overlapping maturities deduplicated",
			sel:  map[string][]string{model.CategoryMaturity: {"ate_1_ano", "ate_6_meses"}},
			want: []string{"De 1 mês a 6 meses", "De 6 meses a 12 meses"},
		},
		{
			name: "index category ignored",
			sel: map[string][]string{
				model.CategoryIndex: {"cdi", "ipca"},
				model.CategoryOther: {"garantia_fgc"},
			},
			want: []string{"Proteção FGC"},
		},
		{
			name: "unknown keys dropped",
			sel: map[string][]string{
				model.CategoryLiquidity: {"diaria", "semanal"},
				model.CategoryMaturity:  {"ate_100_anos"},
			},
			want: []string{"Diária"},
		},
		{
			name: "category order",
			sel: map[string][]string{
				model.CategoryOther:      {"isento_ir"},
				model.CategoryMinApplied: {"ate_5k"},
				model.CategoryMaturity:   {"ate_6_meses"},
			},
			want: []string{"De 1 mês a 6 meses", "Até R$ 5.000", "Isento de IR"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChipLabels(&model.FilterCriteria{Selections: tt.sel})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ChipLabels = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownKeys(t *testing.T) {
	c := &model.FilterCriteria{Selections: map[string][]string{
		model.CategoryLiquidity: {"semanal"},
		model.CategoryIndex:     {"whatever"},
	}}
	want := []string{"liquidez.semanal"}
	if got := UnknownKeys(c); !reflect.DeepEqual(got, want) {
		t.Errorf("UnknownKeys = %v, want %v", got, want)
	}
}

func newApplier(p page.Page) *Applier {
	log, _ := test.NewNullLogger()
	return NewApplier(p, Pacing{}, log)
}

func TestApply(t *testing.T) {
	fake := pagetest.New()
	fake.Chips["Diária"] = &page.ChipState{Found: true}
	fake.Chips["Proteção FGC"] = &page.ChipState{Found: true, Selected: true}

	c := &model.FilterCriteria{Selections: map[string][]string{
		model.CategoryLiquidity: {"diaria", "carencia"},
		model.CategoryOther:     {"garantia_fgc"},
	}}
	applied, err := newApplier(fake).Apply(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Diária", "Proteção FGC"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("applied = %q, want %q", applied, want)
	}
	if fake.Calls[0] != "chip:Filtrar" {
		t.Errorf("first call = %q, want the panel chip", fake.Calls[0])
	}
	if !fake.Chips["Proteção FGC"].Selected {
		t.Error("already selected chip must not be toggled off")
	}
	if n := fake.Count("chip:"); n != 2 {
		t.Errorf("chip clicks = %d, want 2", n)
	}
}

func TestApplyWithoutPanel(t *testing.T) {
	fake := pagetest.New()
	delete(fake.Chips, page.LabelFilter)
	_, err := newApplier(fake).Apply(context.Background(), &model.FilterCriteria{})
	if !errors.Is(err, model.ErrElementNotFound) {
		t.Fatalf("err = %v, want ErrElementNotFound", err)
	}
}
