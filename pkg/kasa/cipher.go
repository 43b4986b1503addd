package kasa

// The bulbs obfuscate every datagram with an autokey XOR stream: each output
// byte becomes the key for the next one, seeded with 0xAB. It is obfuscation,
// not security, but the firmware refuses anything else.
const cipherSeed = 0xAB

// Encrypt obfuscates a plaintext payload. The input is not modified.
func Encrypt(plain []byte) []byte {
	out := make([]byte, len(plain))
	key := byte(cipherSeed)
	for i, b := range plain {
		key ^= b
		out[i] = key
	}
	return out
}

// Decrypt reverses Encrypt. The input is not modified.
func Decrypt(cipher []byte) []byte {
	out := make([]byte, len(cipher))
	key := byte(cipherSeed)
	for i, b := range cipher {
		out[i] = key ^ b
		key = b
	}
	return out
}
