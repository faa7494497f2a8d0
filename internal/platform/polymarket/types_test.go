package polymarket

import (
	"encoding/json"
	"testing"
)

func TestFlexFloat(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"number", `0.42`, 0.42},
		{"string", `"0.42"`, 0.42},
		{"empty string", `""`, 0},
		{"padded string", `" 1.5 "`, 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f flexFloat
			if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tc.in, err)
			}
			if float64(f) != tc.want {
				t.Errorf("flexFloat(%s) = %v, want %v", tc.in, float64(f), tc.want)
			}
		})
	}

	t.Run("non numeric string", func(t *testing.T) {
		var f flexFloat
		if err := json.Unmarshal([]byte(`"abc"`), &f); err == nil {
			t.Error("Unmarshal of non-numeric string succeeded, want error")
		}
	})
}

func TestToDomainMarketTitleFallback(t *testing.T) {
	t.Run("group item title wins", func(t *testing.T) {
		m := APIMarket{GroupItemTitle: "Group", EventTitle: "Event"}
		if got := m.ToDomainMarket().EventTitle; got != "Group" {
			t.Errorf("EventTitle = %q, want %q", got, "Group")
		}
	})

	t.Run("falls back to event title", func(t *testing.T) {
		m := APIMarket{EventTitle: "Event"}
		if got := m.ToDomainMarket().EventTitle; got != "Event" {
			t.Errorf("EventTitle = %q, want %q", got, "Event")
		}
	})
}

func TestToDomainMarketTokens(t *testing.T) {
	m := APIMarket{
		ID:          "1",
		ConditionID: "0xc",
		Tokens: []APIToken{
			{TokenID: "a", Outcome: "Yes", Price: 0.4},
			{TokenID: "b", Outcome: "No", Price: 0.5},
		},
		Liquidity: 1200,
		Volume24h: 300,
	}

	d := m.ToDomainMarket()
	if len(d.Tokens) != 2 {
		t.Fatalf("len(Tokens) = %d, want 2", len(d.Tokens))
	}
	if d.Tokens[0].Price != 0.4 || d.Tokens[1].Price != 0.5 {
		t.Errorf("token prices = %v/%v, want 0.4/0.5", d.Tokens[0].Price, d.Tokens[1].Price)
	}
	if d.Liquidity != 1200 || d.Volume24h != 300 {
		t.Errorf("liquidity/volume = %v/%v, want 1200/300", d.Liquidity, d.Volume24h)
	}
	if d.Key() != "0xc" {
		t.Errorf("Key() = %q, want %q", d.Key(), "0xc")
	}
}
