package registry

import "testing"

func TestCheckPaymentExactMatch(t *testing.T) {
	expected := []Coin{{Denom: "uusdc", Amount: "1000000"}}
	actual := []Coin{{Denom: "uusdc", Amount: "1000000"}}
	if err := CheckPayment(expected, actual); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
}

func TestCheckPaymentIgnoresZeroExpectedEntries(t *testing.T) {
	expected := []Coin{{Denom: "uusdc", Amount: "1000000"}, {Denom: "uatom", Amount: "0"}}
	actual := []Coin{{Denom: "uusdc", Amount: "1000000"}}
	if err := CheckPayment(expected, actual); err != nil {
		t.Fatalf("expected match ignoring zero entry, got %v", err)
	}
}

func TestCheckPaymentRejectsExtraCoin(t *testing.T) {
	expected := []Coin{{Denom: "uusdc", Amount: "1000000"}}
	actual := []Coin{{Denom: "uusdc", Amount: "1000000"}, {Denom: "uatom", Amount: "5"}}
	if err := CheckPayment(expected, actual); err == nil {
		t.Fatal("expected mismatch error for unexpected extra coin")
	}
}

func TestCheckPaymentRejectsWrongAmount(t *testing.T) {
	expected := []Coin{{Denom: "uusdc", Amount: "1000000"}}
	actual := []Coin{{Denom: "uusdc", Amount: "999999"}}
	if err := CheckPayment(expected, actual); err == nil {
		t.Fatal("expected mismatch error for wrong amount")
	}
}

func TestCheckPaymentSumsDuplicateDenomEntries(t *testing.T) {
	expected := []Coin{{Denom: "uusdc", Amount: "1000000"}}
	actual := []Coin{{Denom: "uusdc", Amount: "600000"}, {Denom: "uusdc", Amount: "400000"}}
	if err := CheckPayment(expected, actual); err != nil {
		t.Fatalf("expected match for split coins summing correctly, got %v", err)
	}
}
