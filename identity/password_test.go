package identity

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		pw string
		ok bool
	}{
		{"Sh0rt!", false},
		{"ALLUPPER1!", false},
		{"alllower1!", false},
		{"NoDigits!!", false},
		{"NoSpecial12", false},
		{"Valid#Pass1", true},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.pw)
		if tc.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.pw, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.pw)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := hashPassword("Valid#Pass1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !checkPassword(hash, "Valid#Pass1") {
		t.Fatalf("expected password verification to succeed")
	}
	if checkPassword(hash, "Valid#Pass2") {
		t.Fatalf("expected wrong password verification to fail")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var b broadcaster
	got := 0
	unsub := b.subscribe(func(Event) { got++ })

	b.publish(Event{Type: SignedIn})
	unsub()
	unsub()
	b.publish(Event{Type: SignedOut})

	if got != 1 {
		t.Fatalf("delivered %d events, want 1", got)
	}
}
