package routing

import (
	"testing"

	"github.com/cedarpos/checkout-api/internal/catalog"
	"github.com/cedarpos/checkout-api/internal/pricing"
)

func line(company pricing.Company, itemID string) pricing.CartLine {
	return pricing.CartLine{CompanyKey: company, ItemID: itemID, Qty: 1, PriceUSD: 1}
}

func TestNormalizeMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"auto", ModeAuto},
		{"official", ModeOfficial},
		{"unofficial", ModeUnofficial},
		{"", ModeAuto},
		{"OFFICIAL", ModeAuto},
		{"split", ModeAuto},
	}
	for _, tc := range cases {
		if got := NormalizeMode(tc.in); got != tc.want {
			t.Fatalf("NormalizeMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEffectiveCompanyExplicitWins(t *testing.T) {
	cart := pricing.Cart{line(pricing.CompanyUnofficial, "a")}
	if got := EffectiveCompany(ModeOfficial, pricing.CompanyUnofficial, cart); got != pricing.CompanyOfficial {
		t.Fatalf("explicit official override ignored, got %v", got)
	}
	if got := EffectiveCompany(ModeUnofficial, pricing.CompanyOfficial, nil); got != pricing.CompanyUnofficial {
		t.Fatalf("explicit unofficial override ignored, got %v", got)
	}
}

func TestEffectiveCompanyAuto(t *testing.T) {
	uniform := pricing.Cart{line(pricing.CompanyUnofficial, "a"), line(pricing.CompanyUnofficial, "b")}
	if got := EffectiveCompany(ModeAuto, pricing.CompanyOfficial, uniform); got != pricing.CompanyUnofficial {
		t.Fatalf("uniform cart should resolve to its company, got %v", got)
	}

	mixed := pricing.Cart{line(pricing.CompanyOfficial, "a"), line(pricing.CompanyUnofficial, "b")}
	if got := EffectiveCompany(ModeAuto, pricing.CompanyUnofficial, mixed); got != pricing.CompanyUnofficial {
		t.Fatalf("mixed cart should fall back to origin, got %v", got)
	}

	if got := EffectiveCompany(ModeAuto, pricing.CompanyOfficial, nil); got != pricing.CompanyOfficial {
		t.Fatalf("empty cart should fall back to origin, got %v", got)
	}
}

func TestIsMixedAndPrimary(t *testing.T) {
	mixed := pricing.Cart{line(pricing.CompanyOfficial, "a"), line(pricing.CompanyUnofficial, "b")}
	if !IsMixed(mixed) {
		t.Fatal("mixed cart not detected")
	}
	if _, ok := PrimaryCompany(mixed); ok {
		t.Fatal("mixed cart must not report a primary company")
	}

	uniform := pricing.Cart{line(pricing.CompanyOfficial, "a")}
	if IsMixed(uniform) {
		t.Fatal("uniform cart flagged as mixed")
	}
	if company, ok := PrimaryCompany(uniform); !ok || company != pricing.CompanyOfficial {
		t.Fatalf("primary company = %v/%v", company, ok)
	}
}

func TestSplitByCompany(t *testing.T) {
	cart := pricing.Cart{
		line(pricing.CompanyUnofficial, "x"),
		line(pricing.CompanyOfficial, "a"),
		line(pricing.CompanyUnofficial, "y"),
		line(pricing.CompanyOfficial, "b"),
	}
	parts := SplitByCompany(cart)
	if len(parts) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(parts))
	}
	if parts[0].Company != pricing.CompanyUnofficial || parts[1].Company != pricing.CompanyOfficial {
		t.Fatalf("partitions out of first-seen order: %v, %v", parts[0].Company, parts[1].Company)
	}
	if len(parts[0].Lines) != 2 || parts[0].Lines[0].ItemID != "x" || parts[0].Lines[1].ItemID != "y" {
		t.Fatalf("unofficial partition lines wrong: %+v", parts[0].Lines)
	}
	if len(parts[1].Lines) != 2 || parts[1].Lines[0].ItemID != "a" || parts[1].Lines[1].ItemID != "b" {
		t.Fatalf("official partition lines wrong: %+v", parts[1].Lines)
	}

	uniform := SplitByCompany(pricing.Cart{line(pricing.CompanyOfficial, "a")})
	if len(uniform) != 1 {
		t.Fatalf("uniform cart should yield one partition, got %d", len(uniform))
	}
}

func TestPickCompanyForAmbiguousMatch(t *testing.T) {
	both := []pricing.Company{pricing.CompanyUnofficial, pricing.CompanyOfficial}
	cart := pricing.Cart{line(pricing.CompanyUnofficial, "a")}

	if got := PickCompanyForAmbiguousMatch(ModeAuto, pricing.CompanyOfficial, cart, both); got != pricing.CompanyUnofficial {
		t.Fatalf("effective company should win, got %v", got)
	}
	if got := PickCompanyForAmbiguousMatch(ModeAuto, pricing.CompanyUnofficial, nil, []pricing.Company{pricing.CompanyOfficial}); got != pricing.CompanyOfficial {
		t.Fatalf("official should be next in precedence, got %v", got)
	}
	if got := PickCompanyForAmbiguousMatch(ModeOfficial, pricing.CompanyOfficial, nil, []pricing.Company{pricing.CompanyUnofficial}); got != pricing.CompanyUnofficial {
		t.Fatalf("unofficial should be last resort before first-available, got %v", got)
	}
	if got := PickCompanyForAmbiguousMatch(ModeAuto, pricing.CompanyOfficial, nil, nil); got != "" {
		t.Fatalf("no available companies should yield empty, got %v", got)
	}
}

func TestFindMissingItems(t *testing.T) {
	snap := catalog.NewSnapshot(map[pricing.Company][]string{
		pricing.CompanyOfficial: {"a", "b"},
	})
	cart := pricing.Cart{
		line(pricing.CompanyOfficial, "a"),
		line(pricing.CompanyUnofficial, "z"),
		line(pricing.CompanyUnofficial, "z"),
		line(pricing.CompanyOfficial, "b"),
		line(pricing.CompanyUnofficial, "y"),
		{CompanyKey: pricing.CompanyOfficial, Qty: 1},
	}
	missing := FindMissingItems(snap, pricing.CompanyOfficial, cart)
	if len(missing) != 2 || missing[0] != "z" || missing[1] != "y" {
		t.Fatalf("missing = %v, want [z y]", missing)
	}

	covered := pricing.Cart{line(pricing.CompanyOfficial, "a"), line(pricing.CompanyOfficial, "b")}
	if got := FindMissingItems(snap, pricing.CompanyOfficial, covered); len(got) != 0 {
		t.Fatalf("fully covered cart reported missing items: %v", got)
	}
}
