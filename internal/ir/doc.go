// Package ir provides the constrained value representation shared by event
// payloads, b-thread locals and program parameters.
//
// Every value that takes part in state identity must have exactly one
// canonical byte encoding, because the verifier deduplicates global states
// by comparing (or hashing) those bytes. The package therefore:
//   - forbids floats (use int64)
//   - sorts object keys by UTF-16 code units
//   - NFC-normalizes strings at serialization time
//
// ir imports nothing internal; every other package may import it.
package ir
