// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package codec

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// sampleRunes covers every UTF-8 encoded length
var sampleRunes = []rune{'a', 'Z', '0', '\n', 'é', 'ß', '°', '中', '温', '€', '😀', '𝄞'}

func randomText(rng *rand.Rand) string {
	var sb strings.Builder
	n := rng.Intn(64)
	for i := 0; i < n; i++ {
		sb.WriteRune(sampleRunes[rng.Intn(len(sampleRunes))])
	}
	return sb.String()
}

// randomPackedStream spells random text as digit pairs, padded to whole groups
func randomPackedStream(rng *rand.Rand) []byte {
	text := randomText(rng)
	if len(text)%2 != 0 {
		text += "!"
	}
	stream, _ := Encode(text, ModePackedDigitPairs)
	return stream
}

// randomSplit cuts data into consecutive chunks at random points
func randomSplit(rng *rand.Rand, data []byte) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := rng.Intn(len(data)) + 1
		if rng.Intn(4) == 0 {
			n = 1
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	// Empty reads happen on poll timeouts
	if rng.Intn(2) == 0 {
		chunks = append(chunks, nil)
	}
	return chunks
}

// decodeChunked feeds chunks one at a time and finishes with an empty flush
func decodeChunked(t *testing.T, mode DisplayMode, chunks [][]byte) (string, []byte) {
	t.Helper()
	d := NewDecoder(mode)
	var out strings.Builder
	for _, c := range chunks {
		text, err := d.Decode(c)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		out.WriteString(text)
	}
	text, err := d.Decode(nil)
	if err != nil {
		t.Fatalf("unexpected decode error on flush: %v", err)
	}
	out.WriteString(text)
	return out.String(), d.Pending()
}

// ============================================================
// Re-chunking Fuzz Tests
// ============================================================

// TestFuzzDecoder_RechunkIdempotent verifies that splitting a stream at
// arbitrary points never changes the concatenated output
func TestFuzzDecoder_RechunkIdempotent(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		mode := DisplayMode(rng.Intn(3))

		var stream []byte
		switch mode {
		case ModeHex:
			stream = make([]byte, rng.Intn(128))
			rng.Read(stream)
		case ModeText:
			stream = []byte(randomText(rng))
		case ModePackedDigitPairs:
			stream = randomPackedStream(rng)
		}

		whole, wholePending := decodeChunked(t, mode, [][]byte{stream})
		split, splitPending := decodeChunked(t, mode, randomSplit(rng, stream))

		if whole != split {
			t.Fatalf("Round %d (%s): re-chunked output differs\nwhole: %q\nsplit: %q", i, mode, whole, split)
		}
		if !bytes.Equal(wholePending, splitPending) {
			t.Fatalf("Round %d (%s): carry-over differs: % X vs % X", i, mode, wholePending, splitPending)
		}
		if len(splitPending) != 0 {
			t.Fatalf("Round %d (%s): complete stream left carry-over % X", i, mode, splitPending)
		}
	}
}

// TestFuzzDecoder_TruncatedStreamsHoldBack verifies that a stream cut in
// the middle of a character emits a prefix of the full output and that the
// held-back bytes complete it once they arrive
func TestFuzzDecoder_TruncatedStreamsHoldBack(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		mode := ModeText
		stream := []byte(randomText(rng))
		if rng.Intn(2) == 0 {
			mode = ModePackedDigitPairs
			stream = randomPackedStream(rng)
		}
		if len(stream) == 0 {
			continue
		}

		full, _ := decodeChunked(t, mode, [][]byte{stream})
		cut := rng.Intn(len(stream))

		d := NewDecoder(mode)
		head, err := d.Decode(stream[:cut])
		if err != nil {
			t.Fatalf("Round %d: decode error on head: %v", i, err)
		}
		if !strings.HasPrefix(full, head) {
			t.Fatalf("Round %d: head %q is not a prefix of %q", i, head, full)
		}
		tail, err := d.Decode(stream[cut:])
		if err != nil {
			t.Fatalf("Round %d: decode error on tail: %v", i, err)
		}
		if head+tail != full {
			t.Fatalf("Round %d: %q + %q != %q", i, head, tail, full)
		}
	}
}

// TestFuzzDecoder_RandomBytes feeds random bytes in every mode and verifies
// the decoder never panics and never loses carry-over on error
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		d := NewDecoder(DisplayMode(rng.Intn(3)))
		for j := 0; j < 8; j++ {
			chunk := make([]byte, rng.Intn(16))
			rng.Read(chunk)

			before := d.Pending()
			if _, err := d.Decode(chunk); err != nil {
				if !bytes.Equal(before, d.Pending()) {
					t.Fatalf("Round %d: carry-over changed on error", i)
				}
				d.Reset()
			}
		}
	}
}
