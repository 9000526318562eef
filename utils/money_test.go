package utils

import "testing"

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{90.909, 90.91},
		{90.904, 90.9},
		{0.005, 0.01},
		{-0.005, -0.01},
		{1000, 1000},
	}
	for _, tc := range cases {
		if got := RoundMoney(tc.in); got != tc.want {
			t.Errorf("RoundMoney(%v): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMoneyComparisons(t *testing.T) {
	if !MoneyEquals(100.00, 100.009) {
		t.Error("amounts within a cent should compare equal")
	}
	if MoneyEquals(100.00, 100.02) {
		t.Error("amounts two cents apart should not compare equal")
	}
	if MoneyGreater(100.005, 100.00) {
		t.Error("sub-tolerance excess should not count as greater")
	}
	if !MoneyGreater(100.02, 100.00) {
		t.Error("two cents over should count as greater")
	}
}
