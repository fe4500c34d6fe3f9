package kraken

import "testing"

// Vector from the Kraken REST API documentation.
func TestSignRequest(t *testing.T) {
	secret := "kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg=="
	path := "/0/private/AddOrder"
	nonce := "1616492376594"
	payload := "nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25"

	got, err := signRequest(secret, path, nonce, payload)
	if err != nil {
		t.Fatalf("signRequest failed: %v", err)
	}
	want := "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ=="
	if got != want {
		t.Errorf("signature mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSignRequestRejectsBadSecret(t *testing.T) {
	if _, err := signRequest("not base64!!!", "/0/private/TradesHistory", "1", "nonce=1"); err == nil {
		t.Fatal("expected error for undecodable secret")
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		errs []string
		want bool
	}{
		{[]string{"EAPI:Rate limit exceeded"}, true},
		{[]string{"EGeneral:Temporary lockout", "EAPI:rate limit exceeded"}, true},
		{[]string{"EGeneral:Invalid arguments"}, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isRateLimited(c.errs); got != c.want {
			t.Errorf("isRateLimited(%v) = %v, want %v", c.errs, got, c.want)
		}
	}
}
