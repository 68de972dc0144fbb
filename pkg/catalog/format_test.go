package catalog

import (
	"testing"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"Nil", nil, "No result"},
		{"True", true, "Success"},
		{"False", false, "Failed"},
		{"Int", 54321, "54321"},
		{"String", "1.1.110", "1.1.110"},
		{"Empty Slice", []domain.InventoryItem{}, "Empty list"},
		{
			"Slice Of Records",
			[]domain.InventoryItem{{Name: "iron-plate", Count: 50}, {Name: "coal", Count: 10}},
			`[{"name":"iron-plate","count":50}, {"name":"coal","count":10}]`,
		},
		{
			"Record Pointer",
			&domain.PowerStats{ProductionMW: 4.25, ConsumptionMW: 3.5, Satisfaction: 1},
			`{"production_mw":4.25,"consumption_mw":3.5,"satisfaction":1}`,
		},
		{
			"Position",
			domain.Position{X: 5.8, Y: -12.3},
			`{"x":5.8,"y":-12.3}`,
		},
		{
			"Failed Mining Report",
			&domain.MiningReport{Error: "No resources found within 30 tiles of player"},
			`{"error":"No resources found within 30 tiles of player"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatResult(tt.in); got != tt.want {
				t.Errorf("FormatResult(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
