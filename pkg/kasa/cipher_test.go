package kasa

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncryptKnownVector(t *testing.T) {
	// Autokey with seed 0xAB: 'h' -> 0xAB^0x68 = 0xC3, 'i' -> 0xC3^0x69 = 0xAA.
	got := Encrypt([]byte("hi"))
	want := []byte{0xC3, 0xAA}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encrypt(hi) = %x, want %x", got, want)
	}
}

func TestCipherRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("a"),
		[]byte(sysinfoQuery),
		[]byte(`{"smartlife.iot.smartbulb.lightingservice":{"transition_light_state":{"on_off":0}}}`),
	}
	for _, plain := range cases {
		if got := Decrypt(Encrypt(plain)); !bytes.Equal(got, plain) {
			t.Fatalf("round trip of %q gave %q", plain, got)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		plain := make([]byte, rng.Intn(512))
		rng.Read(plain)
		if got := Decrypt(Encrypt(plain)); !bytes.Equal(got, plain) {
			t.Fatalf("round trip failed for random payload of %d bytes", len(plain))
		}
	}
}

func TestEncryptDoesNotMutateInput(t *testing.T) {
	plain := []byte("do not touch")
	orig := append([]byte(nil), plain...)
	Encrypt(plain)
	if !bytes.Equal(plain, orig) {
		t.Fatal("Encrypt mutated its input")
	}
	enc := Encrypt(plain)
	encOrig := append([]byte(nil), enc...)
	Decrypt(enc)
	if !bytes.Equal(enc, encOrig) {
		t.Fatal("Decrypt mutated its input")
	}
}
